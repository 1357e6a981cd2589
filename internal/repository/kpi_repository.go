package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edumetrics/lms-kpi-api/internal/models"
)

// KPIRepository persists course indicator records into the warehouse
// star schema: three dimension tables plus the course fact table.
type KPIRepository struct {
	db *sqlx.DB
}

// NewKPIRepository constructs the repository.
func NewKPIRepository(db *sqlx.DB) *KPIRepository {
	return &KPIRepository{db: db}
}

const upsertTimeDim = `INSERT INTO dim_tiempo (id_tiempo, nombre_periodo, anio, trimestre)
VALUES (:id_tiempo, :nombre_periodo, :anio, :trimestre)
ON CONFLICT (id_tiempo) DO NOTHING`

const upsertInstructorDim = `INSERT INTO dim_profesor (id_profesor, nombre_profesor)
VALUES (:id_profesor, :nombre_profesor)
ON CONFLICT (id_profesor) DO UPDATE SET
    nombre_profesor = EXCLUDED.nombre_profesor`

const upsertSubjectDim = `INSERT INTO dim_asignatura (id_asignatura, nombre_materia, departamento)
VALUES (:id_asignatura, :nombre_materia, :departamento)
ON CONFLICT (id_asignatura) DO UPDATE SET
    nombre_materia = EXCLUDED.nombre_materia,
    departamento = EXCLUDED.departamento`

const upsertCourseFact = `INSERT INTO hecho_experiencia_curso (
    id_curso, id_tiempo, id_asignatura, id_profesor, nombre_curso, categoria_id,
    startdate, enddate, timecreated, timemodified, n_estudiantes_procesados,
    ind_1_1_cumplimiento, ind_1_1_num, ind_1_1_den,
    ind_1_2_aprobacion, ind_1_2_num, ind_1_2_den,
    ind_1_3_nota_promedio, ind_1_3_nota_mediana, ind_1_3_nota_desviacion,
    ind_1_4_participacion, ind_1_4_num, ind_1_4_den,
    ind_1_5_finalizacion, ind_1_5_num, ind_1_5_den,
    ind_2_1_metod_activa, ind_2_1_num, ind_2_1_den,
    ind_2_2_ratio_eval, ind_2_2_num, ind_2_2_den,
    ind_3_1_selectividad, ind_3_1_num, ind_3_1_den,
    ind_3_2_feedback, ind_3_2_num, ind_3_2_den
) VALUES (
    :id_curso, :id_tiempo, :id_asignatura, :id_profesor, :nombre_curso, :categoria_id,
    :startdate, :enddate, :timecreated, :timemodified, :n_estudiantes_procesados,
    :ind_1_1_cumplimiento, :ind_1_1_num, :ind_1_1_den,
    :ind_1_2_aprobacion, :ind_1_2_num, :ind_1_2_den,
    :ind_1_3_nota_promedio, :ind_1_3_nota_mediana, :ind_1_3_nota_desviacion,
    :ind_1_4_participacion, :ind_1_4_num, :ind_1_4_den,
    :ind_1_5_finalizacion, :ind_1_5_num, :ind_1_5_den,
    :ind_2_1_metod_activa, :ind_2_1_num, :ind_2_1_den,
    :ind_2_2_ratio_eval, :ind_2_2_num, :ind_2_2_den,
    :ind_3_1_selectividad, :ind_3_1_num, :ind_3_1_den,
    :ind_3_2_feedback, :ind_3_2_num, :ind_3_2_den
)
ON CONFLICT (id_curso) DO UPDATE SET
    id_tiempo = EXCLUDED.id_tiempo,
    id_asignatura = EXCLUDED.id_asignatura,
    id_profesor = EXCLUDED.id_profesor,
    nombre_curso = EXCLUDED.nombre_curso,
    categoria_id = EXCLUDED.categoria_id,
    startdate = EXCLUDED.startdate,
    enddate = EXCLUDED.enddate,
    timecreated = EXCLUDED.timecreated,
    timemodified = EXCLUDED.timemodified,
    n_estudiantes_procesados = EXCLUDED.n_estudiantes_procesados,
    ind_1_1_cumplimiento = EXCLUDED.ind_1_1_cumplimiento,
    ind_1_1_num = EXCLUDED.ind_1_1_num,
    ind_1_1_den = EXCLUDED.ind_1_1_den,
    ind_1_2_aprobacion = EXCLUDED.ind_1_2_aprobacion,
    ind_1_2_num = EXCLUDED.ind_1_2_num,
    ind_1_2_den = EXCLUDED.ind_1_2_den,
    ind_1_3_nota_promedio = EXCLUDED.ind_1_3_nota_promedio,
    ind_1_3_nota_mediana = EXCLUDED.ind_1_3_nota_mediana,
    ind_1_3_nota_desviacion = EXCLUDED.ind_1_3_nota_desviacion,
    ind_1_4_participacion = EXCLUDED.ind_1_4_participacion,
    ind_1_4_num = EXCLUDED.ind_1_4_num,
    ind_1_4_den = EXCLUDED.ind_1_4_den,
    ind_1_5_finalizacion = EXCLUDED.ind_1_5_finalizacion,
    ind_1_5_num = EXCLUDED.ind_1_5_num,
    ind_1_5_den = EXCLUDED.ind_1_5_den,
    ind_2_1_metod_activa = EXCLUDED.ind_2_1_metod_activa,
    ind_2_1_num = EXCLUDED.ind_2_1_num,
    ind_2_1_den = EXCLUDED.ind_2_1_den,
    ind_2_2_ratio_eval = EXCLUDED.ind_2_2_ratio_eval,
    ind_2_2_num = EXCLUDED.ind_2_2_num,
    ind_2_2_den = EXCLUDED.ind_2_2_den,
    ind_3_1_selectividad = EXCLUDED.ind_3_1_selectividad,
    ind_3_1_num = EXCLUDED.ind_3_1_num,
    ind_3_1_den = EXCLUDED.ind_3_1_den,
    ind_3_2_feedback = EXCLUDED.ind_3_2_feedback,
    ind_3_2_num = EXCLUDED.ind_3_2_num,
    ind_3_2_den = EXCLUDED.ind_3_2_den`

// Save upserts one course record and its dimensions in a single
// transaction, so a half-written course never reaches the warehouse.
func (r *KPIRepository) Save(ctx context.Context, kpi *models.CourseKPI) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin kpi transaction: %w", err)
	}
	defer tx.Rollback()

	if kpi.TimeID != "" {
		if _, err := tx.NamedExecContext(ctx, upsertTimeDim, kpi); err != nil {
			return fmt.Errorf("upsert time dimension: %w", err)
		}
	}
	if _, err := tx.NamedExecContext(ctx, upsertInstructorDim, kpi); err != nil {
		return fmt.Errorf("upsert instructor dimension: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, upsertSubjectDim, kpi); err != nil {
		return fmt.Errorf("upsert subject dimension: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, upsertCourseFact, kpi); err != nil {
		return fmt.Errorf("upsert course fact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit kpi transaction: %w", err)
	}
	return nil
}

// GetByCourseID reads one fact row back, mainly for verification and
// the admin API.
func (r *KPIRepository) GetByCourseID(ctx context.Context, courseID int64) (*models.CourseKPI, error) {
	const query = `SELECT h.*, t.nombre_periodo, t.anio, t.trimestre,
    a.nombre_materia, a.departamento, p.nombre_profesor
FROM hecho_experiencia_curso h
JOIN dim_tiempo t ON t.id_tiempo = h.id_tiempo
JOIN dim_asignatura a ON a.id_asignatura = h.id_asignatura
JOIN dim_profesor p ON p.id_profesor = h.id_profesor
WHERE h.id_curso = $1`

	var kpi models.CourseKPI
	if err := r.db.GetContext(ctx, &kpi, query, courseID); err != nil {
		return nil, fmt.Errorf("get course kpi %d: %w", courseID, err)
	}
	return &kpi, nil
}
