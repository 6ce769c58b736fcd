package firestore

import (
	"context"
	"fmt"

	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/util"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	colUsers    = "users"
	colAccounts = "accounts"
	colPosts    = "posts"
	colLikes    = "likes"
	colFollows  = "follows"
)

// Store Firestore 文档存储
type Store struct {
	client *firestore.Client
}

// NewStore 连接 Firestore。credentialsFile 为空时使用默认凭据。
func NewStore(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建 Firestore 客户端失败: %w", err)
	}
	util.Logger.Info("Firestore 连接成功", zap.String("project", projectID))
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Users() *UserRepository       { return &UserRepository{s.client} }
func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s.client} }
func (s *Store) Posts() *PostRepository       { return &PostRepository{s.client} }
func (s *Store) Likes() *LikeRepository       { return &LikeRepository{s.client} }
func (s *Store) Follows() *FollowRepository   { return &FollowRepository{s.client} }

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

// getOne 读取单个文档，不存在时返回 nil, nil
func getOne[T any](ctx context.Context, ref *firestore.DocumentRef, setID func(*T, string)) (*T, error) {
	snap, err := ref.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var v T
	if err := snap.DataTo(&v); err != nil {
		return nil, err
	}
	setID(&v, snap.Ref.ID)
	return &v, nil
}

func decodeAll[T any](docs []*firestore.DocumentSnapshot, setID func(*T, string)) ([]*T, error) {
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, fmt.Errorf("解析文档 %s 失败: %w", doc.Ref.ID, err)
		}
		setID(&v, doc.Ref.ID)
		out = append(out, &v)
	}
	return out, nil
}

func queryAll[T any](ctx context.Context, q firestore.Query, setID func(*T, string)) ([]*T, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return decodeAll(docs, setID)
}

func count(ctx context.Context, q firestore.Query) (int, error) {
	result, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := result["all"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("聚合结果类型错误: %T", result["all"])
	}
	return int(v.GetIntegerValue()), nil
}

// subscribe 把查询的实时快照转换成完整列表推送
func subscribe[T any](ctx context.Context, q firestore.Query, setID func(*T, string), onSnapshot func([]*T), onError func(error)) interfaces.Unsubscribe {
	ctx, cancel := context.WithCancel(ctx)
	it := q.Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if ctx.Err() != nil || err == iterator.Done {
				return
			}
			if err != nil {
				if onError != nil {
					onError(err)
				}
				return
			}

			docs, err := snap.Documents.GetAll()
			if err == nil {
				var items []*T
				items, err = decodeAll(docs, setID)
				if err == nil {
					onSnapshot(items)
					continue
				}
			}
			if onError != nil {
				onError(err)
			}
			return
		}
	}()

	return func() { cancel() }
}
