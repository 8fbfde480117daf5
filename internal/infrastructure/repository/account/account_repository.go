package account

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/account"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/database/entities"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/database/transaction"
	"github.com/quangtuanitmo18/qr-order-server/internal/utils/platformerrors"
)

// Repository reads staff accounts.
type Repository struct {
	txDB *transaction.Database
}

// NewRepository builds an account repository.
func NewRepository(txDB *transaction.Database) *Repository {
	return &Repository{txDB: txDB}
}

var _ account.Repository = (*Repository)(nil)

// FindByID fetches one account, or nil.
func (r *Repository) FindByID(ctx context.Context, id uint) (*account.Account, error) {
	var entity entities.Account
	err := r.txDB.GetDB(ctx).WithContext(ctx).First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to fetch account",
			err,
			"45e8a1d6-0b97-4c32-8f5e-a7d20c9b6e13",
		)
	}
	return entity.EtoD(), nil
}

// FindByIDs fetches the accounts that exist among ids, without erroring on
// missing ones.
func (r *Repository) FindByIDs(ctx context.Context, ids []uint) ([]*account.Account, error) {
	var rows []entities.Account
	err := r.txDB.GetDB(ctx).WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to fetch accounts",
			err,
			"d920c5f7-68ae-4b14-93d6-e05b7a2c4f81",
		)
	}
	accounts := make([]*account.Account, len(rows))
	for i := range rows {
		accounts[i] = rows[i].EtoD()
	}
	return accounts, nil
}
