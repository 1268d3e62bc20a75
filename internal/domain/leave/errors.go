package leave

import "errors"

var (
	ErrLeaveTypeNotFound            = errors.New("Leave type not found")
	ErrBalanceNotFound              = errors.New("Leave balance not found")
	ErrInsufficientBalance          = errors.New("Insufficient leave balance")
	ErrLeaveRequestNotFound         = errors.New("Leave request not found")
	ErrLeaveRequestAlreadyProcessed = errors.New("Leave request already processed")
	ErrApprovalStepNotFound         = errors.New("No pending approval step for leave request")
	ErrApproverNotAllowed           = errors.New("Approver is not allowed to act on this step")
)
