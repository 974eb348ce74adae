package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/paystub/internal/paystub/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const paystubColumns = `id, client_id, date, pay_frequency, hourly_rate, regular_hours, overtime_hours,
	gross_pay_period, net_pay_period, total_tax_period, tax_details, tax_ytd_details,
	ytd_regular, ytd_overtime, total_taxes_ytd, schema_version, calculated_by, created_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Paystub) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO paystubs (`+paystubColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.ClientID,
		p.Date,
		p.PayFrequency,
		p.HourlyRate,
		p.RegularHours,
		p.OvertimeHours,
		p.GrossPayPeriod,
		p.NetPayPeriod,
		p.TotalTaxPeriod,
		p.TaxDetails,
		p.TaxYTDDetails,
		p.YTDRegular,
		p.YTDOvertime,
		p.TotalTaxesYTD,
		p.SchemaVersion,
		p.CalculatedBy,
		p.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, clientID, id snowflake.ID) (*domain.Paystub, error) {
	var p domain.Paystub
	err := db.WithContext(ctx).
		Model(&domain.Paystub{}).
		Where("client_id = ? AND id = ?", clientID, id).
		Limit(1).
		Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ListByClient(ctx context.Context, db *gorm.DB, clientID snowflake.ID) ([]*domain.Paystub, error) {
	var items []*domain.Paystub
	err := db.WithContext(ctx).
		Model(&domain.Paystub{}).
		Where("client_id = ?", clientID).
		Order("date desc, created_at desc, id desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Latest returns the last committed paystub of a client. Pay dates may be
// backdated, so commit order decides.
func (r *repo) Latest(ctx context.Context, db *gorm.DB, clientID snowflake.ID) (*domain.Paystub, error) {
	var p domain.Paystub
	err := db.WithContext(ctx).
		Model(&domain.Paystub{}).
		Where("client_id = ?", clientID).
		Order("created_at desc, id desc").
		Limit(1).
		Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, clientID, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM paystubs WHERE client_id = ? AND id = ?`,
		clientID,
		id,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
