package models

const (
	BuildingManagement      = "Building Management"
	EmergencySafety         = "Emergency & Safety"
	FinancialReports        = "Financial Reports"
	GeneralDocuments        = "General Documents"
	InsuranceAssessments    = "Insurance & Assessments"
	LegalGovernance         = "Legal & Governance"
	MaintenanceInstallation = "Maintenance & Installation"
	MeetingDocuments        = "Meeting Documents"
	ResidentInformation     = "Resident Information"
	RulesRegulations        = "Rules & Regulations"
	StructuralReports       = "Structural Reports"
	Uncategorized           = "Uncategorized"
)

var defaultCategories = []string{
	BuildingManagement,
	EmergencySafety,
	FinancialReports,
	GeneralDocuments,
	InsuranceAssessments,
	LegalGovernance,
	MaintenanceInstallation,
	MeetingDocuments,
	ResidentInformation,
	RulesRegulations,
	StructuralReports,
	Uncategorized,
}

// DefaultCategories returns a fresh copy of the default taxonomy.
func DefaultCategories() []string {
	return append([]string(nil), defaultCategories...)
}

// IsCatchAll reports whether category is one of the fallback buckets.
func IsCatchAll(category string) bool {
	return category == GeneralDocuments || category == Uncategorized
}

// IsReportCategory reports whether files in category form a monthly series
// that is sorted by period and checked for gaps.
func IsReportCategory(category string) bool {
	return category == FinancialReports || category == BuildingManagement
}
