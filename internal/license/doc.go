// Package license implements the license authorization and lifecycle engine:
// role resolution, per-role quota policy, and the create / verify / revoke /
// restore state machine over an injected document store.
//
// The package owns all policy decisions. Storage, authentication, and
// transport are collaborators injected through the LicenseStore, UserStore,
// and AuditStore interfaces, plus Clock and IDSource for testability.
//
// Verification negatives (unknown license, revoked, expired, universe
// mismatch) are normal results carried in VerifyResult, never errors; errors
// are reserved for store failures and caller faults.
package license
