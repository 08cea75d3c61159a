package catalog

// TaskType identifies a preparation task from the fixed template catalog.
type TaskType string

const (
	TaskConsultation        TaskType = "CONSULTATION"
	TaskBloodwork           TaskType = "BLOODWORK"
	TaskECG                 TaskType = "ECG"
	TaskMedicationReview    TaskType = "MEDICATION_REVIEW"
	TaskEquipmentCheck      TaskType = "EQUIPMENT_CHECK"
	TaskAnesthesiaClearance TaskType = "ANESTHESIA_CLEARANCE"
	TaskPatientInstructions TaskType = "PATIENT_INSTRUCTIONS"
	TaskFinalReview         TaskType = "FINAL_REVIEW"
)

// TaskPriority orders tasks within the preparation timeline.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// TaskTemplate describes one entry of the preparation chain. DueDate of
// the concrete task is surgery date minus DaysBeforeSurgery.
type TaskTemplate struct {
	Type              TaskType
	Name              string
	DaysBeforeSurgery int
	Priority          TaskPriority
	Dependencies      []TaskType
	NotifyTemplateID  string
}

// taskTemplates is ordered by DaysBeforeSurgery descending so the chain
// is created earliest-first.
var taskTemplates = []TaskTemplate{
	{Type: TaskConsultation, Name: "Pre-surgery consultation", DaysBeforeSurgery: 14, Priority: PriorityCritical, NotifyTemplateID: "requirement-reminder"},
	{Type: TaskBloodwork, Name: "Bloodwork panel", DaysBeforeSurgery: 10, Priority: PriorityHigh, Dependencies: []TaskType{TaskConsultation}, NotifyTemplateID: "requirement-reminder"},
	{Type: TaskECG, Name: "ECG", DaysBeforeSurgery: 10, Priority: PriorityHigh, Dependencies: []TaskType{TaskConsultation}, NotifyTemplateID: "requirement-reminder"},
	{Type: TaskMedicationReview, Name: "Medication review", DaysBeforeSurgery: 7, Priority: PriorityMedium, Dependencies: []TaskType{TaskBloodwork}},
	{Type: TaskEquipmentCheck, Name: "Equipment check", DaysBeforeSurgery: 5, Priority: PriorityHigh},
	{Type: TaskAnesthesiaClearance, Name: "Anesthesia clearance", DaysBeforeSurgery: 4, Priority: PriorityCritical, Dependencies: []TaskType{TaskBloodwork, TaskECG}},
	{Type: TaskPatientInstructions, Name: "Patient instructions", DaysBeforeSurgery: 3, Priority: PriorityMedium, Dependencies: []TaskType{TaskMedicationReview}},
	{Type: TaskFinalReview, Name: "Final review", DaysBeforeSurgery: 1, Priority: PriorityCritical, Dependencies: []TaskType{TaskAnesthesiaClearance, TaskEquipmentCheck}},
}

// TaskTemplates returns the catalog ordered by DaysBeforeSurgery
// descending.
func TaskTemplates() []TaskTemplate {
	out := make([]TaskTemplate, len(taskTemplates))
	copy(out, taskTemplates)
	return out
}

// LookupTaskTemplate returns the template for a task type.
func LookupTaskTemplate(t TaskType) (TaskTemplate, bool) {
	for _, tpl := range taskTemplates {
		if tpl.Type == t {
			return tpl, true
		}
	}
	return TaskTemplate{}, false
}
