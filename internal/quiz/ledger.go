package quiz

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lojf/quizdesk/internal/models"
)

// Ledger remembers which answer writes the backend already accepted, so a
// retried submission only sends the remainder. Clear drops the receipts once
// a submission completes.
type Ledger interface {
	Written(ctx context.Context, attendeeID int) (map[int]bool, error)
	Record(ctx context.Context, r models.AnswerReceipt) error
	Clear(ctx context.Context, attendeeID int) error
	SaveAttempt(ctx context.Context, a models.QuizAttempt) error
}

type GormLedger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) Written(ctx context.Context, attendeeID int) (map[int]bool, error) {
	var ids []int
	err := l.db.WithContext(ctx).
		Model(&models.AnswerReceipt{}).
		Where("attendee_id = ?", attendeeID).
		Pluck("question_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (l *GormLedger) Record(ctx context.Context, r models.AnswerReceipt) error {
	return l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&r).Error
}

func (l *GormLedger) Clear(ctx context.Context, attendeeID int) error {
	return l.db.WithContext(ctx).
		Where("attendee_id = ?", attendeeID).
		Delete(&models.AnswerReceipt{}).Error
}

func (l *GormLedger) SaveAttempt(ctx context.Context, a models.QuizAttempt) error {
	return l.db.WithContext(ctx).Save(&a).Error
}
