package models

// CourseKPI is the flat per-course indicator record handed to the
// persistence layer. Field names are stable identifiers shared with the
// warehouse schema; renaming any of them requires a storage migration.
//
// Percentage indicators that do not apply to a course (process
// indicators on courses with no digital assessment) are nil pointers
// and persist as NULL. Every ratio indicator also carries its integer
// numerator/denominator so downstream aggregation can recompute
// weighted averages instead of averaging percentages.
type CourseKPI struct {
	CourseID       int64  `db:"id_curso" json:"id_curso"`
	SubjectID      string `db:"id_asignatura" json:"id_asignatura"`
	CourseName     string `db:"nombre_curso" json:"nombre_curso"`
	SubjectName    string `db:"nombre_materia" json:"nombre_materia"`
	InstructorID   int64  `db:"id_profesor" json:"id_profesor"`
	InstructorName string `db:"nombre_profesor" json:"nombre_profesor"`
	CategoryID     int64  `db:"categoria_id" json:"categoria_id"`
	Department     string `db:"departamento" json:"departamento"`

	TimeID     string `db:"id_tiempo" json:"id_tiempo"`
	PeriodName string `db:"nombre_periodo" json:"nombre_periodo"`
	Year       int    `db:"anio" json:"anio"`
	Term       string `db:"trimestre" json:"trimestre"`

	StartDate    int64 `db:"startdate" json:"startdate"`
	EndDate      int64 `db:"enddate" json:"enddate"`
	TimeCreated  int64 `db:"timecreated" json:"timecreated"`
	TimeModified int64 `db:"timemodified" json:"timemodified"`

	ProcessedStudents int `db:"n_estudiantes_procesados" json:"n_estudiantes_procesados"`

	Compliance    *float64 `db:"ind_1_1_cumplimiento" json:"ind_1_1_cumplimiento"`
	ComplianceNum int      `db:"ind_1_1_num" json:"ind_1_1_num"`
	ComplianceDen int      `db:"ind_1_1_den" json:"ind_1_1_den"`

	Approval    float64 `db:"ind_1_2_aprobacion" json:"ind_1_2_aprobacion"`
	ApprovalNum int     `db:"ind_1_2_num" json:"ind_1_2_num"`
	ApprovalDen int     `db:"ind_1_2_den" json:"ind_1_2_den"`

	GradeMean   float64 `db:"ind_1_3_nota_promedio" json:"ind_1_3_nota_promedio"`
	GradeMedian float64 `db:"ind_1_3_nota_mediana" json:"ind_1_3_nota_mediana"`
	GradeStdDev float64 `db:"ind_1_3_nota_desviacion" json:"ind_1_3_nota_desviacion"`

	Participation    float64 `db:"ind_1_4_participacion" json:"ind_1_4_participacion"`
	ParticipationNum int     `db:"ind_1_4_num" json:"ind_1_4_num"`
	ParticipationDen int     `db:"ind_1_4_den" json:"ind_1_4_den"`

	Completion    *float64 `db:"ind_1_5_finalizacion" json:"ind_1_5_finalizacion"`
	CompletionNum int      `db:"ind_1_5_num" json:"ind_1_5_num"`
	CompletionDen int      `db:"ind_1_5_den" json:"ind_1_5_den"`

	ActiveMethodology    *float64 `db:"ind_2_1_metod_activa" json:"ind_2_1_metod_activa"`
	ActiveMethodologyNum int      `db:"ind_2_1_num" json:"ind_2_1_num"`
	ActiveMethodologyDen int      `db:"ind_2_1_den" json:"ind_2_1_den"`

	EvaluationRatio    *float64 `db:"ind_2_2_ratio_eval" json:"ind_2_2_ratio_eval"`
	EvaluationRatioNum int      `db:"ind_2_2_num" json:"ind_2_2_num"`
	EvaluationRatioDen int      `db:"ind_2_2_den" json:"ind_2_2_den"`

	Excellence    *float64 `db:"ind_3_1_selectividad" json:"ind_3_1_selectividad"`
	ExcellenceNum int      `db:"ind_3_1_num" json:"ind_3_1_num"`
	ExcellenceDen int      `db:"ind_3_1_den" json:"ind_3_1_den"`

	FeedbackRate    *float64 `db:"ind_3_2_feedback" json:"ind_3_2_feedback"`
	FeedbackRateNum int      `db:"ind_3_2_num" json:"ind_3_2_num"`
	FeedbackRateDen int      `db:"ind_3_2_den" json:"ind_3_2_den"`
}
