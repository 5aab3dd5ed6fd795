package types

// OperationKind identifies a refactoring operation type
type OperationKind int

const (
	OperationUnknown OperationKind = iota
	OperationRename
	OperationExtractMethod
)

var operationKindStrings = map[OperationKind]string{
	OperationRename:        "rename",
	OperationExtractMethod: "extract_method",
}

// String returns a string representation of the operation kind
func (ok OperationKind) String() string {
	if name, exists := operationKindStrings[ok]; exists {
		return name
	}
	return "unknown"
}

// RiskLevel classifies how dangerous a proposed operation is.
// Levels are ordered so that Max works over triggered rules.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

var riskLevelStrings = map[RiskLevel]string{
	RiskLow:    "low",
	RiskMedium: "medium",
	RiskHigh:   "high",
}

// String returns a string representation of the risk level
func (rl RiskLevel) String() string {
	if name, ok := riskLevelStrings[rl]; ok {
		return name
	}
	return "unknown"
}

// Max returns the higher of two risk levels.
func (rl RiskLevel) Max(other RiskLevel) RiskLevel {
	if other > rl {
		return other
	}
	return rl
}

// SafetyReport is the risk assessment attached to a proposed refactor.
// A hard constraint appears in Blockers; advisory findings in Warnings.
type SafetyReport struct {
	Symbol    *CodeSymbol
	Operation OperationKind
	Risk      RiskLevel
	Warnings  []string
	Blockers  []string
}

// CanProceed reports whether the operation may be applied: true exactly when
// no blockers were raised.
func (r *SafetyReport) CanProceed() bool {
	return len(r.Blockers) == 0
}

// StringReference is a detected indirect string-literal invocation: a line
// containing both a configured dispatch-by-name call pattern and the quoted
// method name.
type StringReference struct {
	FilePath string
	Line     int
	Context  string
}

// ChangeKind identifies how a FileChange rewrites its offset range
type ChangeKind int

const (
	ChangeReplace ChangeKind = iota
	ChangeInsert
	ChangeDelete
)

var changeKindStrings = map[ChangeKind]string{
	ChangeReplace: "replace",
	ChangeInsert:  "insert",
	ChangeDelete:  "delete",
}

// String returns a string representation of the change kind
func (ck ChangeKind) String() string {
	if name, ok := changeKindStrings[ck]; ok {
		return name
	}
	return "unknown"
}

// FileChange is one offset-addressed text edit against a specific file.
// Offsets are byte offsets valid against the file's content at prepare time.
// A FileChange is never mutated after creation and is consumed once by apply.
type FileChange struct {
	FilePath    string
	Kind        ChangeKind
	StartOffset int
	EndOffset   int
	OldText     string
	NewText     string
}

// FilePreview is the full before/after text of one affected file.
type FilePreview struct {
	FilePath    string
	Before      string
	After       string
	ChangeCount int
}

// RefactoringPreview is the immutable snapshot returned by Prepare.
// When the safety report blocks the operation, Files is empty and
// TotalChanges is zero.
type RefactoringPreview struct {
	Operation    OperationKind
	Target       *CodeSymbol
	Safety       SafetyReport
	Files        []FilePreview
	TotalChanges int
}
