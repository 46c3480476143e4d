package rules

import (
	"fmt"
)

// Phase represents the broad phases of a duel turn as seen by the players.
type Phase int

const (
	PhaseSetup Phase = iota
	PhaseMain
	PhaseAttack
	PhaseCombat
	PhaseEnd
	PhaseGameOver
)

var phaseNames = map[Phase]string{
	PhaseSetup:    "SETUP",
	PhaseMain:     "MAIN",
	PhaseAttack:   "ATTACK",
	PhaseCombat:   "COMBAT",
	PhaseEnd:      "END",
	PhaseGameOver: "GAME_OVER",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// Step represents the individual steps that comprise a turn.
type Step int

const (
	StepUntap Step = iota
	StepUpkeep
	StepDraw
	StepMain1
	StepDeclareAttackers
	StepFirstStrikeDamage
	StepCombatDamage
	StepEndCombat
	StepMain2
	StepEnd
)

var stepNames = map[Step]string{
	StepUntap:             "UNTAP",
	StepUpkeep:            "UPKEEP",
	StepDraw:              "DRAW",
	StepMain1:             "MAIN1",
	StepDeclareAttackers:  "DECLARE_ATTACKERS",
	StepFirstStrikeDamage: "FIRST_STRIKE_DAMAGE",
	StepCombatDamage:      "COMBAT_DAMAGE",
	StepEndCombat:         "END_COMBAT",
	StepMain2:             "MAIN2",
	StepEnd:               "END",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STEP_%d", int(s))
}

// baseTurnSequence is the default turn structure without first strike damage step
var baseTurnSequence = []Step{
	StepUntap,
	StepUpkeep,
	StepDraw,
	StepMain1,
	StepDeclareAttackers,
	StepCombatDamage,
	StepEndCombat,
	StepMain2,
	StepEnd,
}

// buildTurnSequence creates the turn sequence, optionally including StepFirstStrikeDamage
// if hasFirstStrike is true
func buildTurnSequence(hasFirstStrike bool) []Step {
	sequence := make([]Step, 0, len(baseTurnSequence)+1)
	for _, step := range baseTurnSequence {
		// Insert StepFirstStrikeDamage before StepCombatDamage
		if step == StepCombatDamage && hasFirstStrike {
			sequence = append(sequence, StepFirstStrikeDamage)
		}
		sequence = append(sequence, step)
	}
	return sequence
}

// TurnManager tracks the active seat, phase and step progression. It is not
// safe for concurrent use; the engine serializes access.
type TurnManager struct {
	index          int
	turnNumber     int
	active         Side
	phase          Phase
	sequence       []Step // Dynamic turn sequence
	hasFirstStrike bool   // Whether current turn sequence includes first strike step
	winner         Side
}

// NewTurnManager creates a turn manager in the setup phase.
func NewTurnManager() *TurnManager {
	return &TurnManager{
		phase:    PhaseSetup,
		sequence: buildTurnSequence(false),
	}
}

// Begin starts turn 1 for first, already in its main phase. The opening
// player skips untap, upkeep and draw.
func (tm *TurnManager) Begin(first Side) error {
	if tm.phase != PhaseSetup {
		return Illegal("game already started")
	}
	if !first.Valid() {
		return fmt.Errorf("invalid starting side %q", first)
	}
	tm.active = first
	tm.turnNumber = 1
	tm.phase = PhaseMain
	tm.sequence = buildTurnSequence(false)
	tm.index = tm.indexOf(StepMain1)
	return nil
}

// TurnNumber returns the current turn number (1-based, counting both seats).
func (tm *TurnManager) TurnNumber() int {
	return tm.turnNumber
}

// Active returns the seat whose turn it is.
func (tm *TurnManager) Active() Side {
	return tm.active
}

// Phase returns the phase currently in progress.
func (tm *TurnManager) Phase() Phase {
	return tm.phase
}

// Step returns the step currently in progress.
func (tm *TurnManager) Step() Step {
	return tm.sequence[tm.index]
}

// Sequence returns a copy of the current turn sequence.
func (tm *TurnManager) Sequence() []Step {
	return append([]Step(nil), tm.sequence...)
}

// HasFirstStrike reports whether this turn's combat runs a first-strike step.
func (tm *TurnManager) HasFirstStrike() bool {
	return tm.hasFirstStrike
}

// IsOver reports whether the game has finished.
func (tm *TurnManager) IsOver() bool {
	return tm.phase == PhaseGameOver
}

// Winner returns the winning seat once the game is over.
func (tm *TurnManager) Winner() (Side, bool) {
	if tm.phase != PhaseGameOver {
		return "", false
	}
	return tm.winner, true
}

// RequireMain returns an illegal-action error unless side owns the turn and
// the game is in its main phase.
func (tm *TurnManager) RequireMain(side Side) error {
	switch tm.phase {
	case PhaseSetup:
		return Illegal("game has not started")
	case PhaseGameOver:
		return Illegal("game is over")
	}
	if tm.active != side {
		return Illegal("not your turn")
	}
	if tm.phase != PhaseMain {
		return Illegal("not allowed during the %s phase", tm.phase)
	}
	if step := tm.Step(); step != StepMain1 && step != StepMain2 {
		return Illegal("not allowed during the %s step", step)
	}
	return nil
}

// AdvanceTo moves forward through the turn sequence to step.
func (tm *TurnManager) AdvanceTo(step Step) error {
	for i := tm.index; i < len(tm.sequence); i++ {
		if tm.sequence[i] == step {
			tm.index = i
			return nil
		}
	}
	return fmt.Errorf("step %s is not ahead of %s", step, tm.Step())
}

// EnterAttack moves side's main phase into the attack phase.
func (tm *TurnManager) EnterAttack(side Side) error {
	if tm.phase == PhaseAttack && tm.active == side {
		return Illegal("already in the attack phase")
	}
	if err := tm.RequireMain(side); err != nil {
		return err
	}
	if err := tm.AdvanceTo(StepDeclareAttackers); err != nil {
		return Illegal("already attacked this turn")
	}
	tm.phase = PhaseAttack
	return nil
}

// CancelAttack returns from the attack phase to the main phase without combat.
func (tm *TurnManager) CancelAttack() error {
	if tm.phase != PhaseAttack {
		return Illegal("not in the attack phase")
	}
	tm.phase = PhaseMain
	tm.index = tm.indexOf(StepMain1)
	return nil
}

// BeginCombat starts combat resolution and returns the damage steps to run,
// inserting the first-strike step when a participant needs it.
func (tm *TurnManager) BeginCombat(hasFirstStrike bool) ([]Step, error) {
	if tm.phase != PhaseAttack {
		return nil, Illegal("not in the attack phase")
	}
	current := tm.Step()
	tm.sequence = buildTurnSequence(hasFirstStrike)
	tm.hasFirstStrike = hasFirstStrike
	tm.index = tm.indexOf(current)
	tm.phase = PhaseCombat

	steps := []Step{StepCombatDamage}
	if hasFirstStrike {
		steps = []Step{StepFirstStrikeDamage, StepCombatDamage}
	}
	if err := tm.AdvanceTo(steps[0]); err != nil {
		return nil, err
	}
	return steps, nil
}

// EndCombat closes combat and returns to the main phase.
func (tm *TurnManager) EndCombat() error {
	if tm.phase != PhaseCombat {
		return Illegal("not in combat")
	}
	if err := tm.AdvanceTo(StepMain2); err != nil {
		return err
	}
	tm.phase = PhaseMain
	return nil
}

// EndTurn closes side's turn and returns the seat that plays next.
func (tm *TurnManager) EndTurn(side Side) (Side, error) {
	if tm.phase == PhaseAttack && tm.active == side {
		return "", Illegal("cannot end turn during the attack phase")
	}
	if err := tm.RequireMain(side); err != nil {
		return "", err
	}
	tm.phase = PhaseEnd
	tm.index = tm.indexOf(StepEnd)
	return side.Opponent(), nil
}

// StartTurn begins side's turn at the untap step. The engine walks the
// beginning steps with AdvanceTo before handing out the main phase.
func (tm *TurnManager) StartTurn(side Side) error {
	if tm.phase != PhaseEnd {
		return fmt.Errorf("cannot start a turn from the %s phase", tm.phase)
	}
	tm.active = side
	tm.turnNumber++
	tm.sequence = buildTurnSequence(false)
	tm.hasFirstStrike = false
	tm.index = 0
	tm.phase = PhaseMain
	return nil
}

// ForceEnd abandons the current turn wherever it stands and moves to the
// end phase so the next turn can start.
func (tm *TurnManager) ForceEnd() {
	if tm.phase == PhaseSetup || tm.phase == PhaseGameOver {
		return
	}
	tm.phase = PhaseEnd
	tm.index = tm.indexOf(StepEnd)
}

// Finish ends the game. Later calls keep the first winner.
func (tm *TurnManager) Finish(winner Side) {
	if tm.phase == PhaseGameOver {
		return
	}
	tm.winner = winner
	tm.phase = PhaseGameOver
}

func (tm *TurnManager) indexOf(step Step) int {
	for i, s := range tm.sequence {
		if s == step {
			return i
		}
	}
	return 0
}
