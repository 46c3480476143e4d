package rules

import (
	"errors"
	"testing"
)

func TestTurnSequenceFirstStrikeInsertion(t *testing.T) {
	plain := buildTurnSequence(false)
	withFirstStrike := buildTurnSequence(true)

	if len(withFirstStrike) != len(plain)+1 {
		t.Fatalf("expected one extra step, got %d vs %d", len(withFirstStrike), len(plain))
	}
	for i, step := range withFirstStrike {
		if step == StepFirstStrikeDamage {
			if withFirstStrike[i+1] != StepCombatDamage {
				t.Fatalf("first strike step must precede combat damage, got %s", withFirstStrike[i+1])
			}
			return
		}
	}
	t.Fatal("first strike step missing")
}

func TestTurnManagerBegin(t *testing.T) {
	tm := NewTurnManager()

	if err := tm.RequireMain(SidePlayer); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("expected illegal action before start, got %v", err)
	}
	if err := tm.Begin(SidePlayer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tm.TurnNumber() != 1 || tm.Active() != SidePlayer {
		t.Fatalf("expected turn 1 for player, got %d %s", tm.TurnNumber(), tm.Active())
	}
	if tm.Phase() != PhaseMain || tm.Step() != StepMain1 {
		t.Fatalf("expected MAIN/MAIN1, got %s/%s", tm.Phase(), tm.Step())
	}
	if err := tm.Begin(SidePlayer); err == nil {
		t.Fatal("expected second Begin to fail")
	}
	if err := tm.RequireMain(SideEnemy); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("expected enemy to be rejected on player's turn, got %v", err)
	}
}

func TestTurnManagerAttackCycle(t *testing.T) {
	tm := NewTurnManager()
	_ = tm.Begin(SidePlayer)

	if err := tm.EnterAttack(SidePlayer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tm.EnterAttack(SidePlayer); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("expected re-entering attack phase to be illegal, got %v", err)
	}
	if _, err := tm.EndTurn(SidePlayer); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("expected end turn during attack to be illegal, got %v", err)
	}

	// Cancelling returns to main and allows another try.
	if err := tm.CancelAttack(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tm.Phase() != PhaseMain {
		t.Fatalf("expected MAIN after cancel, got %s", tm.Phase())
	}
	if err := tm.EnterAttack(SidePlayer); err != nil {
		t.Fatalf("unexpected error re-entering attack: %v", err)
	}

	steps, err := tm.BeginCombat(true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 2 || steps[0] != StepFirstStrikeDamage || steps[1] != StepCombatDamage {
		t.Fatalf("unexpected damage steps %v", steps)
	}
	if tm.Step() != StepFirstStrikeDamage {
		t.Fatalf("expected first strike step, got %s", tm.Step())
	}
	if err := tm.AdvanceTo(StepCombatDamage); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tm.EndCombat(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tm.Phase() != PhaseMain || tm.Step() != StepMain2 {
		t.Fatalf("expected MAIN/MAIN2 after combat, got %s/%s", tm.Phase(), tm.Step())
	}

	// Only one attack per turn.
	if err := tm.EnterAttack(SidePlayer); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("expected second attack to be illegal, got %v", err)
	}
}

func TestTurnManagerEndTurnWrapsToOpponent(t *testing.T) {
	tm := NewTurnManager()
	_ = tm.Begin(SidePlayer)

	next, err := tm.EndTurn(SidePlayer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != SideEnemy || tm.Phase() != PhaseEnd {
		t.Fatalf("expected enemy next in END, got %s %s", next, tm.Phase())
	}
	if err := tm.StartTurn(next); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tm.TurnNumber() != 2 || tm.Active() != SideEnemy || tm.Step() != StepUntap {
		t.Fatalf("expected turn 2 for enemy at untap, got %d %s %s", tm.TurnNumber(), tm.Active(), tm.Step())
	}
	if err := tm.RequireMain(SideEnemy); !errors.Is(err, ErrIllegalAction) {
		t.Fatal("commands must wait for the main step")
	}
	if err := tm.AdvanceTo(StepMain1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tm.RequireMain(SideEnemy); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tm.HasFirstStrike() {
		t.Fatal("new turn must not carry the first strike step")
	}
}

func TestTurnManagerFinish(t *testing.T) {
	tm := NewTurnManager()
	_ = tm.Begin(SidePlayer)

	tm.Finish(SideEnemy)
	tm.Finish(SidePlayer)

	winner, ok := tm.Winner()
	if !ok || winner != SideEnemy {
		t.Fatalf("expected enemy to keep the win, got %s %v", winner, ok)
	}
	if err := tm.RequireMain(SidePlayer); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("expected commands after game over to be illegal, got %v", err)
	}
}

func TestIllegalReason(t *testing.T) {
	err := Illegal("need %d more mana", 2)
	if !errors.Is(err, ErrIllegalAction) {
		t.Fatal("expected ErrIllegalAction")
	}
	if Reason(err) != "need 2 more mana" {
		t.Fatalf("unexpected reason %q", Reason(err))
	}
}

func TestTurnManagerForceEnd(t *testing.T) {
	tm := NewTurnManager()
	tm.ForceEnd()
	if tm.Phase() != PhaseSetup {
		t.Fatalf("force end before start should do nothing, got %s", tm.Phase())
	}

	if err := tm.Begin(SidePlayer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tm.EnterAttack(SidePlayer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tm.ForceEnd()
	if tm.Phase() != PhaseEnd || tm.Step() != StepEnd {
		t.Fatalf("expected END/END, got %s/%s", tm.Phase(), tm.Step())
	}
	if err := tm.StartTurn(SideEnemy); err != nil {
		t.Fatalf("start after force end: %v", err)
	}
	if tm.Active() != SideEnemy || tm.TurnNumber() != 2 {
		t.Fatalf("expected enemy turn 2, got %s %d", tm.Active(), tm.TurnNumber())
	}
}
