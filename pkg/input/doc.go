// Package input converts raw controller samples into canonical state
// snapshots ready for the wire.
//
// The Normalizer applies, in order:
//
//  1. Deadzone: stick axes below 8% of full scale clamp to zero, with the
//     remaining range linearly remapped so the usable range still spans the
//     full output range. Triggers use a 5% deadzone with output rescaled to
//     0..65535.
//  2. Rate limit: snapshots are emitted no more often than once per ~8.33ms
//     (120Hz ceiling) regardless of the input sample rate.
//  3. Duplicate suppression: an identical state repeated within ~5ms of
//     the last emission is discarded, guarding against event storms from a
//     single physical transition.
//  4. Change detection: a snapshot is emitted only if it differs
//     significantly from the last emitted one: any button bit, a stick
//     axis by more than ~1.5% of full range, a trigger by more than ~0.3%,
//     or the d-pad vector at all.
//
// Suppressed samples are silently discarded; they are not queued and not
// counted as drops.
//
// Output is a bounded channel with the same drop-oldest semantics as the
// relay send queue, so a slow downstream consumer can never block the
// capture path.
//
// Device disconnection emits one reset snapshot with all axes and buttons
// zeroed, so the remote side converges to a known-safe state instead of
// freezing on the last non-zero input.
package input
