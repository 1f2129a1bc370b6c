package conf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/zeptools/pdf-joiner/audit"
	"github.com/zeptools/pdf-joiner/db"
	"github.com/zeptools/pdf-joiner/db/kvdb"
	"github.com/zeptools/pdf-joiner/db/kvdb/impls/redis"
	"github.com/zeptools/pdf-joiner/db/sqldb"
	"github.com/zeptools/pdf-joiner/db/sqldb/impls/mysql"
	"github.com/zeptools/pdf-joiner/db/sqldb/impls/pgsql"
	"github.com/zeptools/pdf-joiner/doctypes"
	"github.com/zeptools/pdf-joiner/locks/keyonlylocks"
	"github.com/zeptools/pdf-joiner/requests"
	"github.com/zeptools/pdf-joiner/schedjobs"
	"github.com/zeptools/pdf-joiner/svc"
	"github.com/zeptools/pdf-joiner/throttle"
	"github.com/zeptools/pdf-joiner/tpl"
	"github.com/zeptools/pdf-joiner/uds"
	"github.com/zeptools/pdf-joiner/web"
)

const (
	DefaultAppName         = "BMS PDF Joiner"
	DefaultListen          = "0.0.0.0:8000"
	DefaultMaxUploadMB     = 200
	DefaultShutdownTimeout = 30

	MergeThrottleGroup = "merge"
)

type ThrottleConf struct {
	Disabled            bool `json:"disabled"`
	Burst               int  `json:"burst"`
	Increment           int  `json:"increment"`
	PeriodSec           int  `json:"period_sec"`
	CleanupCycleSec     int  `json:"cleanup_cycle_sec"`
	CleanupOlderThanSec int  `json:"cleanup_older_than_sec"`
}

type AuditConf struct {
	KV            bool   `json:"kv"`             // record to the KV database
	SQL           string `json:"sql"`            // name of the SQL database to record to, "" for none
	Keep          int64  `json:"keep"`           // KV list cap
	RetentionDays int    `json:"retention_days"` // SQL rows older than this are pruned daily, 0 keeps all
}

// Core - common config
type Core struct {
	AppName            string       `json:"app_name"`
	Listen             string       `json:"listen"`               // HTTP Server Listen IP:PORT Address
	Host               string       `json:"host"`                 // public host, informational
	MaxUploadMB        int64        `json:"max_upload_mb"`        // request body ceiling for POST /merge
	ShutdownTimeoutSec int          `json:"shutdown_timeout_sec"` // grace period for in-flight merges
	AdminSocket        string       `json:"admin_socket"`         // unix socket path, relative to AppRoot, "" disables
	TrustedProxies     []string     `json:"trusted_proxies"`      // IPs or CIDRs whose X-Forwarded-For is believed
	Throttle           ThrottleConf `json:"throttle"`
	Audit              AuditConf    `json:"audit"`

	AppRoot             string                        `json:"-"` // Filled from flags
	RootCtx             context.Context               `json:"-"` // Global Context with RootCancel
	RootCancel          context.CancelFunc            `json:"-"` // CancelFunc for RootCtx
	Proxies             *requests.TrustedProxies      `json:"-"` // BaseInit, parsed TrustedProxies
	Catalog             *doctypes.Catalog             `json:"-"` // LoadCatalog
	HTMLTemplateStore   *tpl.HTMLTemplateStore        `json:"-"` // PrepareHTMLTemplateStore
	ThrottleBucketStore *throttle.BucketStore[string] `json:"-"` // PrepareThrottleBucketStore
	WebService          *web.Service                  `json:"-"` // PrepareWebService
	UDSService          *uds.Service                  `json:"-"` // PrepareUDSService
	JobScheduler        *schedjobs.Scheduler          `json:"-"` // PrepareJobScheduler
	KVDBConf            kvdb.Conf                     `json:"-"` // loadKVDBConf
	BackendKVDBClient   kvdb.Client                   `json:"-"` // prepareKVDBClient
	SQLDBConfs          map[string]*sqldb.Conf        `json:"-"` // loadSQLDBConfs
	BackendSQLDBClients map[string]sqldb.Client       `json:"-"` // prepareSQLDBClients
	AuditRecorder       audit.Recorder                `json:"-"` // PrepareAudit
	AuditReader         audit.Reader                  `json:"-"` // PrepareAudit, nil if nothing readable
	AuditCounters       audit.CounterReader           `json:"-"` // PrepareAudit, KV only
	ActionLocks         *sync.Map                     `json:"-"` // map[string]struct{}
	auditPruner         *audit.SQLRecorder

	services []svc.Service // Services to Manage
	done     chan error
}

// BaseInit - 1st step for initialization
// 1. set AppRoot
// 2. load config/.core.json file
// 3. fill defaults and parse trusted proxies
// 4. Start ShutdownSignalListener
func (c *Core) BaseInit(appRoot string, rootCtx context.Context, rootCancel context.CancelFunc) error {
	c.AppRoot = appRoot
	confBytes, err := c.readConfFile(".core.json")
	if err != nil {
		return err
	}
	if err = json.Unmarshal(confBytes, c); err != nil {
		return fmt.Errorf(".core.json: %w", err)
	}
	c.applyDefaults()
	if c.Proxies, err = requests.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return fmt.Errorf(".core.json: %w", err)
	}
	c.ActionLocks = &sync.Map{}
	c.RootCtx = rootCtx
	c.RootCancel = rootCancel
	c.startShutdownSignalListener()
	return nil
}

func (c *Core) applyDefaults() {
	if c.AppName == "" {
		c.AppName = DefaultAppName
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = DefaultMaxUploadMB
	}
	if c.ShutdownTimeoutSec <= 0 {
		c.ShutdownTimeoutSec = DefaultShutdownTimeout
	}
	if c.Throttle == (ThrottleConf{}) {
		c.Throttle = ThrottleConf{Burst: 10, Increment: 1, PeriodSec: 6, CleanupCycleSec: 300, CleanupOlderThanSec: 1800}
	}
	if c.Audit.KV && c.Audit.Keep == 0 {
		c.Audit.Keep = 1000
	}
}

// MaxUploadBytes is the body ceiling for uploads, 0 when unlimited
func (c *Core) MaxUploadBytes() int64 {
	if c.MaxUploadMB < 0 {
		return 0
	}
	return c.MaxUploadMB << 20
}

func (c *Core) confPath(name string) string {
	return filepath.Join(c.AppRoot, "config", name)
}

func (c *Core) readConfFile(name string) ([]byte, error) {
	return os.ReadFile(c.confPath(name))
}

func (c *Core) AddService(s svc.Service) {
	log.Printf("[INFO] adding service: %s", s.Name())
	c.services = append(c.services, s)
	log.Printf("[INFO] total services: %d", len(c.services))
}

func (c *Core) StartServices() error {
	c.done = make(chan error, len(c.services))
	for _, s := range c.services {
		if err := s.Start(); err != nil {
			return fmt.Errorf("start %s: %w", s.Name(), err)
		}
		go func() {
			c.done <- <-s.Done()
		}()
	}
	return nil
}

// WaitServicesDone blocks until every service reported done.
// The first service error cancels RootCtx so the rest wind down too.
func (c *Core) WaitServicesDone() error {
	var first error
	for range c.services {
		if err := <-c.done; err != nil && first == nil {
			first = err
			c.RootCancel()
		}
	}
	return first
}

func (c *Core) StopServices() {
	for _, s := range c.services {
		s.Stop()
	}
}

var once sync.Once

func (c *Core) startShutdownSignalListener() {
	once.Do(func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigs
			log.Printf("[INFO] got signal [%s]. shutting down app [%s] ...", sig, c.AppName)
			c.RootCancel() // broadcast to all child services via Context.Done()
		}()
	})
	log.Printf("[INFO][CORE] shutdown signal listener started")
}

// LoadCatalog reads config/.doc-types.json, falling back to the built-in
// catalog when the file does not exist
func (c *Core) LoadCatalog() error {
	cat, err := doctypes.Load(c.confPath(".doc-types.json"))
	if errors.Is(err, fs.ErrNotExist) {
		c.Catalog = doctypes.Default()
		log.Printf("[INFO][CORE] using built-in catalog with %d document types", c.Catalog.Len())
		return nil
	}
	if err != nil {
		return err
	}
	c.Catalog = cat
	log.Printf("[INFO][CORE] loaded catalog with %d document types", c.Catalog.Len())
	return nil
}

func (c *Core) PrepareHTMLTemplateStore() error {
	c.HTMLTemplateStore = tpl.NewHTMLTemplateStore()
	return c.HTMLTemplateStore.LoadBaseTemplates(
		filepath.Join(c.AppRoot, "templates", "html"),
	)
}

// PrepareThrottleBucketStore registers the merge bucket group. No-op when
// throttling is disabled.
func (c *Core) PrepareThrottleBucketStore() error {
	if c.Throttle.Disabled {
		return nil
	}
	bconf := &throttle.BucketConf{
		Burst:     c.Throttle.Burst,
		Increment: c.Throttle.Increment,
		Period:    time.Duration(c.Throttle.PeriodSec) * time.Second,
	}
	if !bconf.Valid() {
		return fmt.Errorf("invalid throttle config: %+v", c.Throttle)
	}
	c.ThrottleBucketStore = throttle.NewBucketStore[string](
		c.RootCtx,
		time.Duration(c.Throttle.CleanupCycleSec)*time.Second,
		time.Duration(c.Throttle.CleanupOlderThanSec)*time.Second,
	)
	c.ThrottleBucketStore.SetBucketGroup(MergeThrottleGroup, bconf)
	c.AddService(c.ThrottleBucketStore)
	return nil
}

func (c *Core) PrepareWebService(router http.Handler) {
	c.WebService = web.NewService(c.RootCtx, c.Listen, router, time.Duration(c.ShutdownTimeoutSec)*time.Second)
	c.AddService(c.WebService)
}

// PrepareUDSService is a no-op when no admin socket is configured
func (c *Core) PrepareUDSService(cmdMap map[string]uds.CmdHnd) {
	if c.AdminSocket == "" {
		return
	}
	sockPath := c.AdminSocket
	if !filepath.IsAbs(sockPath) {
		sockPath = filepath.Join(c.AppRoot, sockPath)
	}
	c.UDSService = uds.NewService(c.RootCtx, sockPath, cmdMap)
	c.AddService(c.UDSService)
}

func (c *Core) PrepareJobScheduler() {
	c.JobScheduler = schedjobs.NewScheduler(c.RootCtx)
	c.AddService(c.JobScheduler)
}

// PrepareKVDatabase loads config/.kv-databases.json and connects.
// A missing file leaves BackendKVDBClient nil.
func (c *Core) PrepareKVDatabase() error {
	err := c.loadKVDBConf()
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("[INFO][CORE] no KV database configured")
		return nil
	}
	if err != nil {
		return err
	}
	return c.prepareKVDBClient()
}

func (c *Core) loadKVDBConf() error {
	confBytes, err := c.readConfFile(".kv-databases.json")
	if err != nil {
		return err
	}
	if err = json.Unmarshal(confBytes, &c.KVDBConf); err != nil {
		return fmt.Errorf(".kv-databases.json: %w", err)
	}
	return nil
}

func (c *Core) prepareKVDBClient() error {
	switch c.KVDBConf.Type {
	case "redis":
		client := &redis.Client{Conf: &c.KVDBConf}
		if err := client.Init(); err != nil {
			return err
		}
		c.BackendKVDBClient = client
	default:
		return fmt.Errorf("unsupported key-value database type: %q", c.KVDBConf.Type)
	}
	return nil
}

// PrepareSQLDatabases loads config/.sql-databases.json and connects every
// database in it. A missing file leaves BackendSQLDBClients empty.
func (c *Core) PrepareSQLDatabases() error {
	c.BackendSQLDBClients = make(map[string]sqldb.Client)
	err := c.loadSQLDBConfs()
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("[INFO][CORE] no SQL database configured")
		return nil
	}
	if err != nil {
		return err
	}
	return c.prepareSQLDBClients()
}

func (c *Core) loadSQLDBConfs() error {
	confBytes, err := c.readConfFile(".sql-databases.json")
	if err != nil {
		return err
	}
	c.SQLDBConfs = make(map[string]*sqldb.Conf)
	if err = json.Unmarshal(confBytes, &c.SQLDBConfs); err != nil {
		return fmt.Errorf(".sql-databases.json: %w", err)
	}
	return nil
}

// prepareSQLDBClients - Build & Init SQL DB Clients
// Use after loadSQLDBConfs
func (c *Core) prepareSQLDBClients() error {
	// Registering Supported Implementations
	pgsql.Register()
	mysql.Register()

	for dbName, sqlDBConf := range c.SQLDBConfs {
		dbClient, err := sqldb.New(sqlDBConf.Type, sqlDBConf)
		if err != nil {
			return fmt.Errorf("sql database %q: %w", dbName, err)
		}
		if err = dbClient.Init(); err != nil {
			return fmt.Errorf("sql database %q: %w", dbName, err)
		}
		c.BackendSQLDBClients[dbName] = dbClient
	}
	return nil
}

// PrepareAudit builds the audit recorder from the audit config.
// Prerequisite: PrepareKVDatabase, PrepareSQLDatabases, and PrepareJobScheduler
// when retention_days is set.
func (c *Core) PrepareAudit(ctx context.Context) error {
	if c.Audit.SQL != "" && c.Audit.RetentionDays > 0 && c.JobScheduler == nil {
		return errors.New("audit.retention_days needs the job scheduler")
	}
	var recorders audit.Multi
	if c.Audit.KV {
		if c.BackendKVDBClient == nil {
			return errors.New("audit.kv is set but no KV database is configured")
		}
		kv := &audit.KVRecorder{Client: c.BackendKVDBClient, Prefix: c.KVDBConf.KeyPrefix, Keep: c.Audit.Keep}
		recorders = append(recorders, kv)
		c.AuditReader = kv
		c.AuditCounters = kv
	}
	if c.Audit.SQL != "" {
		client, ok := c.BackendSQLDBClients[c.Audit.SQL]
		if !ok {
			return fmt.Errorf("audit.sql: unknown SQL database %q", c.Audit.SQL)
		}
		rec := &audit.SQLRecorder{Client: client}
		if err := rec.EnsureSchema(ctx); err != nil {
			return err
		}
		recorders = append(recorders, rec)
		c.auditPruner = rec
		if c.AuditReader == nil {
			c.AuditReader = rec
		}
		if c.Audit.RetentionDays > 0 {
			c.JobScheduler.AddCronJob(schedjobs.NewDailyCronJob("audit-prune", 3, 17, func(ctx context.Context) error {
				_, err := c.PruneAudit(ctx, c.Audit.RetentionDays)
				return err
			}))
		}
	}

	switch len(recorders) {
	case 0:
		c.AuditRecorder = audit.Nop{}
	case 1:
		c.AuditRecorder = recorders[0]
	default:
		c.AuditRecorder = recorders
	}
	log.Printf("[INFO][CORE] audit recorders: %d", len(recorders))
	return nil
}

var ErrNoSQLAudit = errors.New("no SQL audit database configured")

// PruneAudit deletes SQL audit rows older than days. Runs are serialized
// through ActionLocks; an overlapping call fails with keyonlylocks.ErrLocked.
func (c *Core) PruneAudit(ctx context.Context, days int) (int64, error) {
	if c.auditPruner == nil {
		return 0, ErrNoSQLAudit
	}
	if days <= 0 {
		return 0, fmt.Errorf("retention must be at least one day, got %d", days)
	}
	var n int64
	err := keyonlylocks.TryWith(c.ActionLocks, []string{"audit-prune"}, func() error {
		var err error
		n, err = c.auditPruner.Prune(ctx, time.Now().AddDate(0, 0, -days))
		return err
	})
	if err != nil {
		return 0, err
	}
	log.Printf("[INFO][AUDIT] pruned %d records older than %d days", n, days)
	return n, nil
}

func (c *Core) ResourceCleanUp() {
	log.Println("[INFO] App Resource Cleaning Up...")
	if c.BackendKVDBClient != nil {
		db.CloseClient("kvdb:"+c.KVDBConf.Type, c.BackendKVDBClient)
	}
	for name, sqlDBClient := range c.BackendSQLDBClients {
		db.CloseClient("sqldb:"+name, sqlDBClient)
	}
	log.Println("[INFO] App Resource Cleanup Complete")
}
