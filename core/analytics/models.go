package analytics

type (
	// StudentGPA is the analytics view of a student.
	StudentGPA struct {
		StudentID int
		ClassID   *int
		ClassName string
		GPA       float64
	}

	// SubjectScore is an enrolled subject of one student with whatever scores are recorded.
	SubjectScore struct {
		SubjectID   int
		SubjectCode string
		SubjectName string
		Midterm     *float64
		Final       *float64
	}
)

type Bin struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

type ClassAverage struct {
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class_name"`
	Students   int     `json:"students"`
	AverageGPA float64 `json:"average_gpa"`
}

type Overall struct {
	TotalStudents int     `json:"total_students"`
	AverageGPA    float64 `json:"average_gpa"`
	MinGPA        float64 `json:"min_gpa"`
	MaxGPA        float64 `json:"max_gpa"`
}

type RiskCount struct {
	Total    int `json:"total"`
	HighRisk int `json:"high_risk"`
	LowRisk  int `json:"low_risk"`
}

type ClassRisk struct {
	ClassName string `json:"class_name"`
	RiskCount
}

type RiskReport struct {
	All     RiskCount   `json:"all"`
	Classes []ClassRisk `json:"classes"`
}

type SubjectAverage struct {
	SubjectID   int     `json:"subject_id"`
	SubjectCode string  `json:"subject_code"`
	SubjectName string  `json:"subject_name"`
	Midterm     float64 `json:"midterm"`
	Final       float64 `json:"final"`
	Average     float64 `json:"average"`
}

// Personal holds the statistics of a single student.
type Personal struct {
	StudentID         int              `json:"student_id"`
	GPA               float64          `json:"gpa"`
	TotalSubjects     int              `json:"total_subjects"`
	CompletedSubjects int              `json:"completed_subjects"`
	Subjects          []SubjectAverage `json:"subjects"`
	AverageScore      float64          `json:"average_score"`
	PredictedGPA      float64          `json:"predicted_gpa"`
	RiskLevel         string           `json:"risk_level"`
}

type Summary struct {
	Distribution []Bin          `json:"distribution"`
	Classes      []ClassAverage `json:"classes"`
	Overall      Overall        `json:"overall"`
	Risk         RiskReport     `json:"risk"`
}
