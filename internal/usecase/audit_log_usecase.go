package usecase

import (
	"context"

	"medical-office-api/internal/delivery/dto"
	"medical-office-api/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AuditLogUsecase interface {
	GetRecentLogs(ctx context.Context, limit int) (*dto.AuditLogListResponse, error)
}

type auditLogUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	auditLogRepo repository.AuditLogRepository
}

func NewAuditLogUsecase(db *gorm.DB, log *logrus.Logger, auditLogRepo repository.AuditLogRepository) AuditLogUsecase {
	return &auditLogUsecase{
		db:           db,
		log:          log,
		auditLogRepo: auditLogRepo,
	}
}

func (u *auditLogUsecase) GetRecentLogs(ctx context.Context, limit int) (*dto.AuditLogListResponse, error) {
	logs, err := u.auditLogRepo.FindRecent(u.db.WithContext(ctx), limit)
	if err != nil {
		u.log.Warnf("Failed to find audit logs: %+v", err)
		return nil, err
	}

	responses := make([]dto.AuditLogResponse, len(logs))
	for i, l := range logs {
		responses[i] = dto.AuditLogResponse{
			ID:        l.ID,
			Action:    l.Action,
			Metadata:  l.Metadata,
			CreatedAt: l.CreatedAt,
		}
	}

	return &dto.AuditLogListResponse{
		Logs:  responses,
		Total: len(responses),
	}, nil
}
