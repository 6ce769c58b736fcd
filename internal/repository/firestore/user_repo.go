package firestore

import (
	"context"

	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/util"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
)

type UserRepository struct{ client *firestore.Client }

var _ interfaces.UserRepository = (*UserRepository)(nil)

func setUserID(u *model.User, id string) { u.ID = id }

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return getOne(ctx, r.client.Collection(colUsers).Doc(id), setUserID)
}

// Merge 只写入补丁中的字段，文档不存在时创建
func (r *UserRepository) Merge(ctx context.Context, id string, patch model.UserPatch) error {
	data := map[string]interface{}{"updatedAt": firestore.ServerTimestamp}
	if patch.Name != nil {
		data["name"] = *patch.Name
	}
	if patch.Email != nil {
		data["email"] = *patch.Email
	}
	if patch.Bio != nil {
		data["bio"] = *patch.Bio
	}
	if patch.PhotoURL != nil {
		data["photoURL"] = *patch.PhotoURL
	}

	if _, err := r.client.Collection(colUsers).Doc(id).Set(ctx, data, firestore.MergeAll); err != nil {
		util.Logger.Error("更新用户资料失败", util.UID(id), zap.Error(err))
		return err
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.Collection(colUsers).Doc(id).Delete(ctx)
	return err
}

type AccountRepository struct{ client *firestore.Client }

var _ interfaces.AccountRepository = (*AccountRepository)(nil)

func setAccountID(a *model.Account, id string) { a.UID = id }

// Create 以 UID 为文档ID创建账号。邮箱唯一性由身份提供方先行检查。
func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	if _, err := r.client.Collection(colAccounts).Doc(account.UID).Create(ctx, account); err != nil {
		util.Logger.Error("创建账号失败", util.UID(account.UID), zap.Error(err))
		return err
	}
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, uid string) (*model.Account, error) {
	return getOne(ctx, r.client.Collection(colAccounts).Doc(uid), setAccountID)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	q := r.client.Collection(colAccounts).Where("email", "==", email).Limit(1)
	accounts, err := queryAll(ctx, q, setAccountID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return accounts[0], nil
}

func (r *AccountRepository) Update(ctx context.Context, account *model.Account) error {
	_, err := r.client.Collection(colAccounts).Doc(account.UID).Set(ctx, account)
	return err
}

func (r *AccountRepository) Delete(ctx context.Context, uid string) error {
	_, err := r.client.Collection(colAccounts).Doc(uid).Delete(ctx)
	return err
}
