package dto

import "time"

// DaySlotInput addresses one period of the week.
type DaySlotInput struct {
	Day  string `json:"day" validate:"required"`
	Slot int    `json:"slot" validate:"min=0"`
}

// RoomInput describes a bookable room. Category is derived from the id when empty.
type RoomInput struct {
	ID       string `json:"id" validate:"required"`
	Capacity int    `json:"capacity" validate:"min=1"`
	Category string `json:"category" validate:"omitempty,oneof=lecture lab"`
}

// TeacherInput describes a teacher and the periods they cannot teach.
type TeacherInput struct {
	ID          string         `json:"id" validate:"required"`
	Name        string         `json:"name"`
	Unavailable []DaySlotInput `json:"unavailable" validate:"omitempty,dive"`
}

// BatchInput describes a group of students.
type BatchInput struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
	Size int    `json:"size" validate:"min=1"`
}

// SubjectInput captures weekly demand for a subject.
type SubjectInput struct {
	ID        string   `json:"id" validate:"required"`
	Name      string   `json:"name"`
	TeacherID string   `json:"teacherId" validate:"required"`
	BatchIDs  []string `json:"batchIds" validate:"required,min=1,dive,required"`
	PerWeek   int      `json:"perWeek" validate:"required,min=1,max=50"`
	NeedsLab  bool     `json:"needsLab"`
}

// GenerationOptions overrides engine tuning. Omitted fields fall back to the
// service defaults; an explicit pitchAdjustmentRate or generations of 0
// disables swaps or refinement.
type GenerationOptions struct {
	HarmonyMemorySize    int      `json:"harmonyMemorySize" validate:"omitempty,min=1,max=500"`
	PitchAdjustmentRate  *float64 `json:"pitchAdjustmentRate" validate:"omitempty,min=0,max=1"`
	Generations          *int     `json:"generations" validate:"omitempty,min=0,max=100000"`
	Strategy             string   `json:"strategy" validate:"omitempty,oneof=greedy round_robin"`
	MaxBuildAttempts     int      `json:"maxBuildAttempts" validate:"omitempty,min=1,max=100000"`
	MaxTeacherLoadPerDay int      `json:"maxTeacherLoadPerDay" validate:"omitempty,min=1"`
	MaxBatchLoadPerDay   int      `json:"maxBatchLoadPerDay" validate:"omitempty,min=1"`
	ValidateMutations    bool     `json:"validateMutations"`
	RelaxedRetry         *bool    `json:"relaxedRetry"`
	Seed                 int64    `json:"seed"`
}

// GenerateTimetableRequest instructs the generator to build one timetable.
type GenerateTimetableRequest struct {
	Department  string            `json:"department" validate:"max=100"`
	Shift       string            `json:"shift" validate:"max=50"`
	Days        []string          `json:"days" validate:"required,min=1,max=7,dive,required"`
	SlotsPerDay int               `json:"slotsPerDay" validate:"required,min=1,max=24"`
	Rooms       []RoomInput       `json:"rooms" validate:"dive"`
	Teachers    []TeacherInput    `json:"teachers" validate:"dive"`
	Batches     []BatchInput      `json:"batches" validate:"dive"`
	Subjects    []SubjectInput    `json:"subjects" validate:"required,min=1,dive"`
	Options     GenerationOptions `json:"options"`
}

// GenerateTimetableSetRequest asks for up to Count distinct timetables.
type GenerateTimetableSetRequest struct {
	GenerateTimetableRequest
	Count int `json:"count" validate:"required,min=1"`
}

// SlotAssignment is one placed lecture in a response.
type SlotAssignment struct {
	SubjectID   string `json:"subjectId"`
	SubjectName string `json:"subjectName"`
	TeacherID   string `json:"teacherId"`
	TeacherName string `json:"teacherName"`
	BatchID     string `json:"batchId"`
	BatchName   string `json:"batchName"`
	RoomID      string `json:"roomId"`
	Day         string `json:"day"`
	SlotIndex   int    `json:"slotIndex"`
}

// GenerationStats summarises how a run reached its result.
type GenerationStats struct {
	Strategy     string         `json:"strategy"`
	Attempts     int            `json:"attempts"`
	Built        int            `json:"built"`
	Discarded    int            `json:"discarded"`
	RelaxedPass  bool           `json:"relaxedPass"`
	InitialBest  int            `json:"initialBest"`
	FinalBest    int            `json:"finalBest"`
	Generations  int            `json:"generations"`
	Accepted     int            `json:"accepted"`
	Rejected     int            `json:"rejected"`
	LectureCount int            `json:"lectureCount"`
	Reasons      map[string]int `json:"reasons,omitempty"`
	DurationMs   int64          `json:"durationMs"`
}

// TimetableProposal is a generated, not yet persisted timetable.
type TimetableProposal struct {
	ProposalID  string           `json:"proposalId"`
	Rank        int              `json:"rank"`
	Dissonance  int              `json:"dissonance"`
	Unplaced    int              `json:"unplaced"`
	Assignments []SlotAssignment `json:"assignments"`
	ExpiresAt   time.Time        `json:"expiresAt"`
}

// GenerateTimetableResponse returns the best generated timetable.
type GenerateTimetableResponse struct {
	TimetableProposal
	Stats GenerationStats `json:"stats"`
}

// GenerateTimetableSetResponse returns proposals ordered best first.
type GenerateTimetableSetResponse struct {
	Proposals []TimetableProposal `json:"proposals"`
	Stats     GenerationStats     `json:"stats"`
}

// SaveTimetableRequest persists a proposal as a new timetable version.
type SaveTimetableRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	Publish    bool   `json:"publish"`
}

// UpdateTimetableStatusRequest moves a timetable through its lifecycle.
type UpdateTimetableStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING_APPROVAL APPROVED ARCHIVED"`
}

// TimetableQuery filters stored timetables.
type TimetableQuery struct {
	Department string `form:"department" json:"department"`
	Shift      string `form:"shift" json:"shift"`
	Status     string `form:"status" json:"status" validate:"omitempty,oneof=PENDING_APPROVAL APPROVED ARCHIVED"`
	Page       int    `form:"page" json:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" json:"pageSize" validate:"omitempty,min=1,max=200"`
}

// GenerationJobResponse reports asynchronous generation progress.
type GenerationJobResponse struct {
	JobID string `json:"jobId"`
	URL   string `json:"url"`
}
