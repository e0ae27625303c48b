package jobs

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

type JobRunEventRepo interface {
	Append(dbc dbctx.Context, ev *types.JobRunEvent) error
	ListByJob(dbc dbctx.Context, jobID uuid.UUID) ([]*types.JobRunEvent, error)
}

type jobRunEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunEventRepo(db *gorm.DB, baseLog *logger.Logger) JobRunEventRepo {
	return &jobRunEventRepo{db: db, log: baseLog.With("repo", "JobRunEventRepo")}
}

func (r *jobRunEventRepo) Append(dbc dbctx.Context, ev *types.JobRunEvent) error {
	if ev == nil || ev.JobID == uuid.Nil {
		return nil
	}
	return dbc.Handle(r.db).Create(ev).Error
}

func (r *jobRunEventRepo) ListByJob(dbc dbctx.Context, jobID uuid.UUID) ([]*types.JobRunEvent, error) {
	var out []*types.JobRunEvent
	if jobID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Handle(r.db).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
