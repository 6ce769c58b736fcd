package mysql

import (
	"context"
	"database/sql"
	"strings"

	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/util"

	"go.uber.org/zap"
)

// userRepository 实现了 UserRepository 接口
type userRepository struct {
	db *sql.DB
}

var _ interfaces.UserRepository = (*userRepository)(nil)

// NewUserRepository 创建一个新的 userRepository 实例
func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db}
}

// FindByID 通过ID查找资料文档
func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT id, name, email, bio, photo_url, updated_at FROM users WHERE id = ?`
	var user model.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Email, &user.Bio, &user.PhotoURL, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		util.Logger.Error("查找用户资料失败", util.UID(id), zap.Error(err))
		return nil, err
	}
	return &user, nil
}

// Merge 创建或合并更新资料，只写入补丁中给出的字段
func (r *userRepository) Merge(ctx context.Context, id string, patch model.UserPatch) error {
	columns := []string{"id", "updated_at", "bio", "photo_url"}
	values := []interface{}{id, now(), "", ""}
	updates := []string{"updated_at = VALUES(updated_at)"}

	set := func(column string, v *string) {
		if v == nil {
			return
		}
		for i, c := range columns {
			if c == column {
				values[i] = *v
				updates = append(updates, column+" = VALUES("+column+")")
				return
			}
		}
		columns = append(columns, column)
		values = append(values, *v)
		updates = append(updates, column+" = VALUES("+column+")")
	}
	set("name", patch.Name)
	set("email", patch.Email)
	set("bio", patch.Bio)
	set("photo_url", patch.PhotoURL)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := "INSERT INTO users (" + strings.Join(columns, ", ") + ") VALUES (" + placeholders + ")" +
		" ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")

	if _, err := r.db.ExecContext(ctx, query, values...); err != nil {
		util.Logger.Error("更新用户资料失败", util.UID(id), zap.Error(err))
		return err
	}
	return nil
}

// Delete 删除资料文档
func (r *userRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		util.Logger.Error("删除用户资料失败", util.UID(id), zap.Error(err))
		return err
	}
	return nil
}

// accountRepository 实现了 AccountRepository 接口
type accountRepository struct {
	db *sql.DB
}

var _ interfaces.AccountRepository = (*accountRepository)(nil)

func NewAccountRepository(db *sql.DB) *accountRepository {
	return &accountRepository{db}
}

const accountColumns = `uid, email, display_name, password_hash, photo_url, created_at, updated_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.UID, &a.Email, &a.DisplayName, &a.PasswordHash, &a.PhotoURL, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// Create 创建账号，邮箱唯一
func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	util.Logger.Info("尝试创建新账号", zap.String("email", account.Email))
	query := `INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		account.UID, account.Email, account.DisplayName, account.PasswordHash,
		account.PhotoURL, account.CreatedAt.UTC(), account.UpdatedAt.UTC())
	if err != nil {
		util.Logger.Error("创建账号失败", zap.Error(err))
		return err
	}
	util.Logger.Info("账号创建成功", util.UID(account.UID))
	return nil
}

// FindByID 通过UID查找账号
func (r *accountRepository) FindByID(ctx context.Context, uid string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE uid = ?`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, uid))
	if err != nil {
		util.Logger.Error("查找账号失败", util.UID(uid), zap.Error(err))
	}
	return a, err
}

// FindByEmail 通过邮箱查找账号，不区分大小写
func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = ?`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		util.Logger.Error("查找账号失败", zap.String("email", email), zap.Error(err))
	}
	return a, err
}

// Update 更新账号信息
func (r *accountRepository) Update(ctx context.Context, account *model.Account) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET email = ?, display_name = ?, password_hash = ?, photo_url = ?, updated_at = ?
		WHERE uid = ?`,
		account.Email, account.DisplayName, account.PasswordHash, account.PhotoURL, account.UpdatedAt.UTC(), account.UID)
	if err != nil {
		util.Logger.Error("更新账号失败", util.UID(account.UID), zap.Error(err))
	}
	return err
}

// Delete 删除账号
func (r *accountRepository) Delete(ctx context.Context, uid string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE uid = ?`, uid); err != nil {
		util.Logger.Error("删除账号失败", util.UID(uid), zap.Error(err))
		return err
	}
	util.Logger.Info("账号删除成功", util.UID(uid))
	return nil
}
