package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"photoshared-backend/config"
	"photoshared-backend/internal/api/community"
	"photoshared-backend/internal/api/user"
	"photoshared-backend/internal/catalog"
	"photoshared-backend/internal/identity"
	"photoshared-backend/internal/metrics"
	"photoshared-backend/internal/middleware"
	"photoshared-backend/internal/repository/changefeed"
	"photoshared-backend/internal/repository/firestore"
	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/repository/memory"
	"photoshared-backend/internal/repository/mysql"
	"photoshared-backend/internal/service"
	"photoshared-backend/internal/session"
	"photoshared-backend/internal/storage"
	"photoshared-backend/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// repositories 当前文档存储下的各个存储库
type repositories struct {
	users    interfaces.UserRepository
	accounts interfaces.AccountRepository
	posts    interfaces.PostRepository
	likes    interfaces.LikeRepository
	follows  interfaces.FollowRepository
	closers  []io.Closer
}

func (r *repositories) Close() {
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			util.Logger.Warn("关闭存储连接失败", zap.Error(err))
		}
	}
}

func openRepositories(ctx context.Context, cfg config.Config, hub *changefeed.Hub) (*repositories, error) {
	switch cfg.DocStore {
	case "firestore":
		store, err := firestore.NewStore(ctx, cfg.FirestoreProjectID, cfg.GCPCredentialsFile)
		if err != nil {
			return nil, err
		}
		util.Logger.Info("Firestore 连接成功", zap.String("project", cfg.FirestoreProjectID))
		return &repositories{
			users:    store.Users(),
			accounts: store.Accounts(),
			posts:    store.Posts(),
			likes:    store.Likes(),
			follows:  store.Follows(),
			closers:  []io.Closer{store},
		}, nil

	case "mysql":
		db, err := mysql.Open(ctx, mysql.DSN(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName))
		if err != nil {
			return nil, err
		}
		if err := mysql.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		util.Logger.Info("数据库连接成功")
		return &repositories{
			users:    mysql.NewUserRepository(db),
			accounts: mysql.NewAccountRepository(db),
			posts:    mysql.NewPostRepository(db, hub),
			likes:    mysql.NewLikeRepository(db, hub),
			follows:  mysql.NewFollowRepository(db, hub),
			closers:  []io.Closer{db},
		}, nil

	default:
		store := memory.NewStore(hub)
		return &repositories{
			users:    store.Users(),
			accounts: store.Accounts(),
			posts:    store.Posts(),
			likes:    store.Likes(),
			follows:  store.Follows(),
		}, nil
	}
}

func openBlobStore(ctx context.Context, cfg config.Config) (storage.BlobStore, io.Closer, error) {
	switch cfg.BlobStore {
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCSBucketName, cfg.GCPCredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	case "s3":
		client, err := storage.NewS3Client(cfg.S3Region, cfg.S3Bucket)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	default:
		local, err := storage.NewLocalStorage(cfg.LocalStoragePath, cfg.BackendURL+"/uploads")
		if err != nil {
			return nil, nil, err
		}
		util.Logger.Info("上传文件夹已创建或已存在", zap.String("path", local.BasePath()))
		return local, nil, nil
	}
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			util.Logger.Error("程序发生严重错误", zap.Any("error", r))
		}
	}()

	// 初始化配置
	config.Init()
	cfg := config.AppConfig

	// 初始化日志
	util.InitLogger(cfg.LogLevel)
	defer util.Logger.Sync()

	util.Logger.Info("应用程序启动")

	ctx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	m := metrics.New()

	hub := changefeed.NewHub()
	defer hub.Close()
	if cfg.NATSURL != "" {
		if err := hub.ConnectNATS(cfg.NATSURL); err != nil {
			util.Logger.Fatal("连接 NATS 失败", zap.Error(err))
		}
		util.Logger.Info("变更通知已接入 NATS", zap.String("url", cfg.NATSURL))
	}

	repos, err := openRepositories(ctx, cfg, hub)
	if err != nil {
		util.Logger.Fatal("初始化文档存储失败", zap.String("store", cfg.DocStore), zap.Error(err))
	}
	defer repos.Close()

	rawBlobs, blobCloser, err := openBlobStore(ctx, cfg)
	if err != nil {
		util.Logger.Fatal("初始化对象存储失败", zap.String("store", cfg.BlobStore), zap.Error(err))
	}
	if blobCloser != nil {
		defer blobCloser.Close()
	}
	blobs := storage.WithMetrics(rawBlobs, m)

	// 图片目录客户端
	catalogOpts := []catalog.Option{
		catalog.WithRateLimit(cfg.CatalogRatePerSec),
		catalog.WithMetrics(m),
	}
	if cfg.RedisAddr != "" {
		rdb, err := catalog.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			util.Logger.Warn("连接 Redis 失败，图片目录不使用缓存", zap.Error(err))
		} else {
			defer rdb.Close()
			catalogOpts = append(catalogOpts, catalog.WithCache(catalog.NewRedisCache(rdb, cfg.CatalogCacheTTL)))
		}
	}
	photos := catalog.NewClient(cfg.UnsplashBaseURL, cfg.UnsplashAccessKey, catalogOpts...)

	// 身份认证
	var mailer identity.Mailer = identity.LogMailer{}
	if cfg.SMTPUsername != "" {
		mailer = identity.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	provider := identity.NewLocalProvider(
		repos.accounts,
		identity.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		mailer,
		cfg.FrontendURL,
	)

	// 初始化服务和处理器
	postService := service.NewPostService(repos.posts, blobs, m)
	likeService := service.NewLikeService(repos.likes, m)
	followService := service.NewFollowService(repos.follows, m)
	feedService := service.NewFeedService(followService, photos, m, cfg.HydrationParallels)
	profileService := service.NewProfileService(repos.users, blobs, provider, m)

	sessions := session.NewManager(&session.Services{
		Posts:   postService,
		Likes:   likeService,
		Follows: followService,
		Feeds:   feedService,
	}, m, cfg.HydrationParallels)
	defer sessions.Close()
	stopListening := provider.OnAuthStateChanged(sessions.HandleAuthState)
	defer stopListening()

	authHandler := user.NewAuthHandler(provider, sessions)
	profileHandler := user.NewProfileHandler(profileService)
	liveHandler := user.NewLiveHandler(sessions, cfg.FrontendURL)
	communityHandler := community.NewCommunityHandler(postService, likeService, followService)
	feedHandler := community.NewFeedHandler(sessions)

	// 注册自定义验证器
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("handle", util.ValidateHandle)
	}

	errorMonitor := middleware.NewErrorMonitor(m)

	r := gin.New()
	r.Use(gin.Logger())

	// 错误监控必须在恢复中间件之前注册，才能记录到 panic
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorMonitorMiddleware(errorMonitor))
	r.Use(middleware.RecoveryMiddleware())

	// 配置 CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Authorization",
	}
	corsConfig.ExposeHeaders = []string{
		"Content-Length",
		"Content-Type",
		"X-Request-ID",
	}
	r.Use(cors.New(corsConfig))

	if cfg.BlobStore == "local" {
		r.Use(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/uploads/") {
				c.Header("Access-Control-Allow-Origin", cfg.FrontendURL)
				c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Origin, Content-Type")

				if c.Request.Method == "OPTIONS" {
					c.AbortWithStatus(200)
					return
				}
			}
			c.Next()
		})
		r.Static("/uploads", cfg.LocalStoragePath)
	}

	r.GET("/metrics", gin.WrapH(m.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "errors": errorMonitor.Stats()})
	})

	auth := middleware.AuthMiddleware(provider)

	api := r.Group("/api")
	{
		// 认证
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.POST("/request-password-reset", authHandler.RequestPasswordReset)
		api.POST("/reset-password", authHandler.ResetPassword)

		// 需要认证的路由
		authorized := api.Group("/")
		authorized.Use(auth)
		{
			authorized.GET("/me", authHandler.Me)
			authorized.POST("/logout", authHandler.Logout)

			authorized.GET("/profile", profileHandler.GetProfile)
			authorized.PUT("/profile", profileHandler.UpdateProfile)
			authorized.POST("/profile/picture", profileHandler.UploadPicture)
			authorized.DELETE("/profile/picture", profileHandler.RemovePicture)
			authorized.DELETE("/account", profileHandler.DeleteAccount)
			authorized.GET("/profile/live", liveHandler.Profile)

			// 帖子
			authorized.POST("/posts", communityHandler.CreatePost)
			authorized.PUT("/posts/:id", communityHandler.UpdatePost)
			authorized.DELETE("/posts/:id", communityHandler.DeletePost)

			// 点赞
			authorized.GET("/likes", communityHandler.GetLikes)
			authorized.POST("/likes", communityHandler.LikePhoto)
			authorized.POST("/likes/toggle", communityHandler.ToggleLike)
			authorized.DELETE("/likes/photos/:photoId", communityHandler.UnlikePhoto)
			authorized.DELETE("/likes/records/:id", communityHandler.DeleteLikeRecord)

			// 关注
			authorized.GET("/following", communityHandler.GetFollowing)
			authorized.GET("/following/:handle", communityHandler.IsFollowing)
			authorized.POST("/following/:handle", communityHandler.Follow)
			authorized.DELETE("/following/:handle", communityHandler.Unfollow)

			// 动态
			authorized.GET("/feed", feedHandler.GetFeed)
			authorized.POST("/feed/photos/:id/like", feedHandler.ToggleFeedLike)
			authorized.DELETE("/feed/following/:handle", feedHandler.UnfollowFromFeed)

			// 搜索和发现
			authorized.GET("/browse/search", feedHandler.Search)
			authorized.GET("/browse/discover", feedHandler.Discover)
			authorized.POST("/browse/photos/:id/like", feedHandler.ToggleBrowseLike)
			authorized.POST("/browse/following/:handle", feedHandler.ToggleBrowseFollow)
		}

		api.GET("/posts/:id", communityHandler.GetPost)
		api.GET("/users/:uid/posts", communityHandler.GetUserPosts)
	}

	if cfg.Debug {
		for _, route := range r.Routes() {
			util.Logger.Debug("路由",
				zap.String("method", route.Method),
				zap.String("path", route.Path),
				zap.String("handler", route.Handler))
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		util.Logger.Info("服务器正在启动", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Logger.Fatal("启动服务器失败", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅地关闭服务器（设置 5 秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	util.Logger.Info("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		util.Logger.Error("服务器强制关闭", zap.Error(err))
	}

	util.Logger.Info("服务器已优雅关闭")
}
