package repository

import (
	"context"
	"time"

	"taxengine/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HolidayRepository interface {
	Create(ctx context.Context, holiday *model.PublicHoliday) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PublicHoliday, error)
	List(ctx context.Context, page, limit int) ([]model.PublicHoliday, int64, error)
	// FindForYear returns every recurring holiday plus one-time holidays whose
	// date falls within the given calendar year.
	FindForYear(ctx context.Context, year int) ([]model.PublicHoliday, error)
}

type holidayRepository struct {
	db *gorm.DB
}

func NewHolidayRepository(db *gorm.DB) HolidayRepository {
	return &holidayRepository{db: db}
}

func (r *holidayRepository) Create(ctx context.Context, holiday *model.PublicHoliday) error {
	return GetDB(ctx, r.db).Create(holiday).Error
}

func (r *holidayRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.PublicHoliday{}).Error
}

func (r *holidayRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PublicHoliday, error) {
	var holiday model.PublicHoliday
	if err := GetDB(ctx, r.db).First(&holiday, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &holiday, nil
}

func (r *holidayRepository) List(ctx context.Context, page, limit int) ([]model.PublicHoliday, int64, error) {
	var holidays []model.PublicHoliday
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.PublicHoliday{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("is_recurring desc, holiday_date asc, recurring_month asc, recurring_day asc").
		Offset(offset).Limit(limit).Find(&holidays).Error; err != nil {
		return nil, 0, err
	}

	return holidays, total, nil
}

func (r *holidayRepository) FindForYear(ctx context.Context, year int) ([]model.PublicHoliday, error) {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)

	var holidays []model.PublicHoliday
	if err := GetDB(ctx, r.db).
		Where("is_recurring = TRUE OR (holiday_date >= ? AND holiday_date < ?)", yearStart, yearEnd).
		Find(&holidays).Error; err != nil {
		return nil, err
	}
	return holidays, nil
}
