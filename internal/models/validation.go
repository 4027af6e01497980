package models

// ValidationStatus classifies a validation finding.
type ValidationStatus string

const (
	ValidationStatusValid      ValidationStatus = "valid"
	ValidationStatusWarning    ValidationStatus = "warning"
	ValidationStatusError      ValidationStatus = "error"
	ValidationStatusImpossible ValidationStatus = "impossible"
)

// IssueCategory groups findings by the part of the block they concern.
type IssueCategory string

const (
	IssueCategoryVisibility      IssueCategory = "visibility"
	IssueCategoryConstraint      IssueCategory = "constraint"
	IssueCategoryCoordinate      IssueCategory = "coordinate"
	IssueCategoryPriority        IssueCategory = "priority"
	IssueCategoryDuration        IssueCategory = "duration"
	IssueCategoryScheduledPeriod IssueCategory = "scheduled_period"
)

// Criticality ranks how severe a finding is.
type Criticality string

const (
	CriticalityLow      Criticality = "Low"
	CriticalityMedium   Criticality = "Medium"
	CriticalityHigh     Criticality = "High"
	CriticalityCritical Criticality = "Critical"
)

// ValidationResult is one finding for one block. A valid finding carries no
// category, criticality or detail fields.
type ValidationResult struct {
	ScheduleID    int64            `db:"schedule_id" json:"schedule_id"`
	BlockID       int64            `db:"scheduling_block_id" json:"scheduling_block_id"`
	Status        ValidationStatus `db:"status" json:"status"`
	IssueType     *string          `db:"issue_type" json:"issue_type,omitempty"`
	Category      *IssueCategory   `db:"category" json:"category,omitempty"`
	Criticality   *Criticality     `db:"criticality" json:"criticality,omitempty"`
	FieldName     *string          `db:"field_name" json:"field_name,omitempty"`
	CurrentValue  *string          `db:"current_value" json:"current_value,omitempty"`
	ExpectedValue *string          `db:"expected_value" json:"expected_value,omitempty"`
	Description   *string          `db:"description" json:"description,omitempty"`
}

// ValidationIssue is a non-valid finding as presented in reports.
type ValidationIssue struct {
	BlockID         int64            `json:"block_id"`
	OriginalBlockID string           `json:"original_block_id,omitempty"`
	Status          ValidationStatus `json:"status"`
	IssueType       string           `json:"issue_type"`
	Category        string           `json:"category"`
	Criticality     string           `json:"criticality"`
	FieldName       string           `json:"field_name,omitempty"`
	CurrentValue    string           `json:"current_value,omitempty"`
	ExpectedValue   string           `json:"expected_value,omitempty"`
	Description     string           `json:"description"`
}

// ValidationReport groups the findings of a schedule by severity.
type ValidationReport struct {
	ScheduleID  int64             `json:"schedule_id"`
	TotalBlocks int               `json:"total_blocks"`
	ValidBlocks int               `json:"valid_blocks"`
	Impossible  []ValidationIssue `json:"impossible_blocks"`
	Errors      []ValidationIssue `json:"validation_errors"`
	Warnings    []ValidationIssue `json:"validation_warnings"`
}

// ValidationRow is a stored finding joined with its block's external id.
type ValidationRow struct {
	ValidationResult
	OriginalBlockID string `db:"original_block_id"`
}
