// Package forward broadcasts named events to ordered sets of plugin
// callbacks and folds their return codes into one result.
//
// A Forward is declared once with a fixed parameter list and an execution
// policy, then pushed and executed every time the event occurs:
//
//	fwd, err := mgr.CreateForward("player_damage", "game", forward.ExecHighest,
//	    forward.ParamCell, forward.ParamCell, forward.ParamFloatByRef, forward.ParamCell)
//	if err != nil {
//	    return err
//	}
//
//	dmg := float32(25)
//	_ = fwd.PushCell(victim)
//	_ = fwd.PushCell(attacker)
//	_ = fwd.PushFloatRef(&dmg, true) // copy plugin edits back into dmg
//	_ = fwd.PushCell(bits)
//	result, err := fwd.ExecFunc()
//
// # Parameters
//
// Every push must match the next declared ParamType. A mismatched or extra
// push is rejected immediately and poisons the pending call: ExecFunc then
// fails without running any target and the buffer is reset.
//
// By-reference kinds (PushCellRef, PushFloatRef, PushArray, PushStringEx)
// take the caller's storage as an explicit output binding. With copy-back
// enabled, targets share one working value, each seeing earlier targets'
// edits, and the final value is written to the binding after the last
// target. Without copy-back every target sees the original value and the
// caller's storage is never written.
//
// # Execution Policy
//
//   - ExecIgnore: every target runs; the result is ResultIgnored.
//   - ExecStop: targets run in order until one returns ResultStop; the
//     result is the last non-ignored return code.
//   - ExecHighest: every target runs; the result is the highest non-ignored
//     return code.
//   - ExecStop|ExecHighest: highest non-ignored code, halting at ResultStop.
//
// A target that fails (returns an error or panics) counts as
// ResultIgnored and never prevents later targets from running.
//
// # Re-entrancy
//
// Pushed parameters move into a private frame before any target runs, so a
// target may push to and execute any forward, including the one currently
// executing.
package forward
