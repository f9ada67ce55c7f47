package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caiqy/prizewheel/internal/config"
	"github.com/caiqy/prizewheel/internal/db"
	"github.com/caiqy/prizewheel/internal/http/api/admin"
	"github.com/caiqy/prizewheel/internal/http/api/front"
	"github.com/caiqy/prizewheel/internal/http/api/webhooks"
	"github.com/caiqy/prizewheel/internal/logging"
	"github.com/caiqy/prizewheel/internal/models"
	"github.com/caiqy/prizewheel/internal/payment"
	"github.com/caiqy/prizewheel/internal/security"
	"github.com/caiqy/prizewheel/internal/session"
	"github.com/caiqy/prizewheel/internal/settings"
	"github.com/caiqy/prizewheel/internal/store"
	"github.com/caiqy/prizewheel/internal/webhook"
	"github.com/caiqy/prizewheel/internal/webui"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// mercadoPagoTimeout bounds payment lookups made while answering a webhook.
const mercadoPagoTimeout = 10 * time.Second

// CreateAdminParams holds inputs for admin creation.
type CreateAdminParams struct {
	Email    string
	Password string
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	conf, err := config.Load(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return err
	}
	conn, err := openDatabase(conf)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return errMigrate
	}
	log.Info("database migrated")
	return nil
}

// CreateAdmin inserts an admin account, or resets the password of an existing one.
func CreateAdmin(ctx context.Context, cfg config.AppConfig, params CreateAdminParams) error {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" {
		return errors.New("create admin: email is required")
	}
	if len(params.Password) < 8 {
		return errors.New("create admin: password must be at least 8 characters")
	}
	conf, err := config.Load(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return err
	}
	conn, err := openDatabase(conf)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	return upsertAdmin(ctx, conn, email, params.Password)
}

func upsertAdmin(ctx context.Context, conn *gorm.DB, email, password string) error {
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("create admin: %w", errHash)
	}
	var existing models.Admin
	errFind := conn.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	switch {
	case errFind == nil:
		if errUpdate := conn.WithContext(ctx).Model(&existing).Updates(map[string]any{
			"password":   hash,
			"role":       models.AdminRoleAdmin,
			"active":     true,
			"updated_at": time.Now().UTC(),
		}).Error; errUpdate != nil {
			return fmt.Errorf("create admin: update: %w", errUpdate)
		}
		log.WithField("email", email).Info("admin password reset")
		return nil
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		row := models.Admin{Email: email, Password: hash, Role: models.AdminRoleAdmin, Active: true}
		if errCreate := conn.WithContext(ctx).Create(&row).Error; errCreate != nil {
			return fmt.Errorf("create admin: insert: %w", errCreate)
		}
		log.WithFields(log.Fields{"email": email, "id": row.ID}).Info("admin created")
		return nil
	default:
		return fmt.Errorf("create admin: lookup: %w", errFind)
	}
}

// RunServer boots the wheel service and blocks until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if errValidate := conf.Validate(); errValidate != nil {
		return errValidate
	}
	logCloser, errLog := logging.Setup(conf.Logging)
	if errLog != nil {
		return errLog
	}
	defer func() { _ = logCloser.Close() }()

	webBundle, errLoad := webui.Load()
	if errLoad != nil {
		return errLoad
	}
	conn, err := openDatabase(conf)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		return fmt.Errorf("load settings: %w", errRefresh)
	}
	settings.NewRefresher(conn, 0).Start(ctx)
	webhook.NewRetentionCleaner(conn).Start(ctx)

	snapshots, closeSnapshots, errSnapshots := newSnapshotStore(ctx, conf.Redis)
	if errSnapshots != nil {
		return errSnapshots
	}
	defer closeSnapshots()

	gormStore := store.NewGormStore(conn)
	ctrl := session.NewController(gormStore, snapshots, session.Options{
		SpinDuration: conf.Promo.SpinDuration,
		Enabled:      settings.WheelEnabled,
	})
	webhookSvc := webhook.NewService(gormStore, webhook.Options{
		SpinAllowance: conf.Promo.SpinAllowance,
		PublicBaseURL: conf.Server.PublicBaseURL,
	})
	var mpClient *payment.MercadoPagoClient
	if token := strings.TrimSpace(conf.Webhooks.MercadoPagoAccessToken); token != "" {
		mpClient = payment.NewMercadoPagoClient(conf.Webhooks.MercadoPagoAPIBase, token, &http.Client{Timeout: mercadoPagoTimeout})
	}
	warnUnverifiedWebhooks(conf.Webhooks)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), logging.GinLogger())
	admin.RegisterAdminRoutes(engine, conn, gormStore, conf.JWT, conf.Promo.Issuer)
	front.RegisterFrontRoutes(engine, ctrl, gormStore)
	webhooks.RegisterWebhookRoutes(engine, webhooks.NewHandler(webhookSvc, conf.Webhooks.KiwifySecret, mpClient), conf.Server.CORSAllowedOrigins)
	webBundle.Register(engine)

	srv := &http.Server{
		Addr:              conf.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("prizewheel listening on %s (config=%s)", srv.Addr, configPath)
		if errServe := srv.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
		}
		close(errCh)
	}()

	select {
	case errServe := <-errCh:
		return errServe
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// warnUnverifiedWebhooks logs one warning per webhook that will trust its request body as sent.
func warnUnverifiedWebhooks(cfg config.WebhookConfig) {
	if strings.TrimSpace(cfg.KiwifySecret) == "" {
		log.Warn("kiwify webhook secret not set; signatures will not be checked")
	}
	if strings.TrimSpace(cfg.MercadoPagoAccessToken) == "" {
		log.Warn("mercadopago access token not set; payment notifications are trusted without lookup and anyone can forge an approved payment")
	}
}

func openDatabase(conf config.Config) (*gorm.DB, error) {
	return db.Open(conf.Database.DSN, db.Options{
		TimeZone:     conf.Database.TimeZone,
		MaxOpenConns: conf.Database.MaxOpenConns,
	})
}

// newSnapshotStore uses Redis when an address is configured and process memory otherwise.
func newSnapshotStore(ctx context.Context, cfg config.RedisConfig) (session.SnapshotStore, func(), error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		log.Info("wheel sessions kept in memory")
		return session.NewMemoryStore(cfg.SessionTTL), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", addr, errPing)
	}
	log.WithField("addr", addr).Info("wheel sessions kept in redis")
	return session.NewRedisStore(client, cfg.SessionTTL), func() { _ = client.Close() }, nil
}
