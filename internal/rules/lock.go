package rules

// LockReason explains why an entity is locked.
type LockReason string

const (
	LockReasonStaleData          LockReason = "STALE_DATA"
	LockReasonNonApprovalCountry LockReason = "NON_APPROVAL_COUNTRY"
)

// LockStatus is the derived editability of a program or application.
type LockStatus struct {
	IsLocked  bool       `json:"is_locked"`
	Reason    LockReason `json:"reason,omitempty"`
	CanUnlock bool       `json:"can_unlock"`
}

// ApplicationLockStatus decides whether an application may currently be
// edited. Decision order, first match wins:
//
//  1. stale or absent program data locks unconditionally,
//  2. approval countries are otherwise always unlocked,
//  3. non-approval countries follow the per-application override, with
//     nil (legacy records) defaulting to unlocked.
func (e *Engine) ApplicationLockStatus(application Application) LockStatus {
	if e.isStale(application.Program) {
		return LockStatus{IsLocked: true, Reason: LockReasonStaleData, CanUnlock: false}
	}

	if e.isApprovalCountry(application.Program.Country) {
		return LockStatus{IsLocked: false, CanUnlock: false}
	}

	locked := application.IsLocked != nil && *application.IsLocked
	status := LockStatus{IsLocked: locked, CanUnlock: true}
	if locked {
		status.Reason = LockReasonNonApprovalCountry
	}
	return status
}

// ProgramLockStatus performs only the staleness check, for contexts where
// no application exists yet.
func (e *Engine) ProgramLockStatus(program Program) LockStatus {
	if e.isStale(program) {
		return LockStatus{IsLocked: true, Reason: LockReasonStaleData, CanUnlock: false}
	}
	return LockStatus{IsLocked: false, CanUnlock: false}
}

func (e *Engine) isStale(program Program) bool {
	if program.UpdatedAt == nil {
		return true
	}
	return e.now().Sub(*program.UpdatedAt) >= e.cfg.StalenessWindow
}
