package engine

import "fmt"

type Action string

const (
	ActionBan  Action = "ban"
	ActionPick Action = "pick"
)

type TurnStep struct {
	Slot   Slot
	Action Action
}

// DefaultVetoOrder builds the ban/pick order for a pool of poolSize maps that must
// resolve to required maps. Team1 acts on even steps, team2 on odd ones. The final
// step is always a ban; the map left over after it is the decider.
//
//	BO1, 7 maps: ban ban ban ban ban ban
//	BO3, 7 maps: ban ban pick pick ban ban
func DefaultVetoOrder(poolSize, required int) ([]Action, error) {
	if poolSize < required+1 {
		return nil, fmt.Errorf("%w: pool of %d maps cannot resolve %d maps", ErrValidation, poolSize, required)
	}
	bans := poolSize - required
	picks := required - 1
	lead := min(2, bans-1)

	order := make([]Action, 0, poolSize-1)
	for i := 0; i < lead; i++ {
		order = append(order, ActionBan)
	}
	for i := 0; i < picks; i++ {
		order = append(order, ActionPick)
	}
	for i := lead; i < bans; i++ {
		order = append(order, ActionBan)
	}
	return order, nil
}

// VetoOrder returns the action sequence a config's veto follows: its explicit
// sequence when set, otherwise the default for BO1 and BO3. BO5 has no default.
func VetoOrder(cfg MatchConfig) ([]Action, error) {
	poolSize := len(cfg.MapPool.Maps)
	required := cfg.Format.RequiredMaps()

	if len(cfg.VetoSequence) == 0 {
		if cfg.Format == FormatBO5 {
			return nil, fmt.Errorf("%w: veto sequence required for BO5", ErrValidation)
		}
		return DefaultVetoOrder(poolSize, required)
	}

	if poolSize < required+1 {
		return nil, fmt.Errorf("%w: pool of %d maps cannot resolve %d maps", ErrValidation, poolSize, required)
	}
	if len(cfg.VetoSequence) != poolSize-1 {
		return nil, fmt.Errorf("%w: veto sequence needs %d steps, got %d", ErrValidation, poolSize-1, len(cfg.VetoSequence))
	}
	bans := 0
	for _, a := range cfg.VetoSequence {
		switch a {
		case ActionBan:
			bans++
		case ActionPick:
		default:
			return nil, fmt.Errorf("%w: unknown veto action %q", ErrValidation, a)
		}
	}
	if bans != poolSize-required {
		return nil, fmt.Errorf("%w: veto sequence needs %d bans, got %d", ErrValidation, poolSize-required, bans)
	}
	if cfg.VetoSequence[len(cfg.VetoSequence)-1] != ActionBan {
		return nil, fmt.Errorf("%w: veto sequence must end with a ban", ErrValidation)
	}
	return cfg.VetoSequence, nil
}

func slotForStep(cursor int) Slot {
	if cursor%2 == 0 {
		return SlotTeam1
	}
	return SlotTeam2
}

// currentStep returns the next veto step; done is true once every step was taken.
func currentStep(m Match) (step TurnStep, done bool, err error) {
	order, err := VetoOrder(m.Config)
	if err != nil {
		return TurnStep{}, false, err
	}
	cursor := len(m.MapBans) + len(m.MapPicks)
	if cursor >= len(order) {
		return TurnStep{}, true, nil
	}
	return TurnStep{Slot: slotForStep(cursor), Action: order[cursor]}, false, nil
}
