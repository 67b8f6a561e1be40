package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/go-github/v55/github"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/agentmesh/controller/internal/cancel"
	"github.com/agentmesh/controller/internal/config"
	githubapp "github.com/agentmesh/controller/internal/githubapp"
	"github.com/agentmesh/controller/internal/githubapi"
	"github.com/agentmesh/controller/internal/healer"
	agentmeshv1alpha1 "github.com/agentmesh/controller/internal/k8s/v1alpha1"
	k8spkg "github.com/agentmesh/controller/internal/k8s"
	"github.com/agentmesh/controller/internal/lock"
	"github.com/agentmesh/controller/internal/logging"
	"github.com/agentmesh/controller/internal/memory"
	"github.com/agentmesh/controller/internal/remediation"
	"github.com/agentmesh/controller/internal/secrets"
	"github.com/agentmesh/controller/internal/workflow"
)

// app wires every collaborator the controller's HTTP handlers depend on.
// It is built once at startup and lives for the process lifetime.
type app struct {
	cfg          *config.Config
	logger       logging.Logger
	k8sClient    client.Client
	workloads    *k8spkg.WorkloadClient
	orchestrator *workflow.LabelOrchestrator
	schemaWatch  *workflow.SchemaWatcher
	states       *remediation.StateManager
	parser       *remediation.Parser
	canceller    *cancel.Canceller
	mem          *memory.Client
	pipelines    map[healer.Source]*healer.Pipeline
	escalation   *healer.EscalationNotifier
	holderName   string
}

func run(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if kubeconfig != "" {
		cfg.Kubernetes.Kubeconfig = kubeconfig
	}
	if metricsAddr != "" {
		cfg.Controller.MetricsAddr = metricsAddr
	}
	if dryRun {
		cfg.Controller.DryRun = true
	}

	logger, err := logging.New(ctx, logging.Config{
		Mode:       logging.Mode(cfg.Logging.Mode),
		GCPProject: cfg.Logging.GCPProject,
		LogID:      cfg.Logging.LogID,
	})
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Close()

	if err := resolveSecrets(ctx, cfg); err != nil {
		logger.Warnf("secret resolution failed, continuing with unresolved values: %v", err)
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing controller: %w", err)
	}
	defer a.schemaWatch.Close()

	go a.schemaWatch.Run()

	srv := &http.Server{
		Addr:    cfg.Controller.MetricsAddr,
		Handler: a.routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("controller listening on %s (dry_run=%v)", cfg.Controller.MetricsAddr, cfg.Controller.DryRun)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Infof("received signal %v, shutting down", sig)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// resolveSecrets fetches "secret://" config references from GCP Secret
// Manager. It is skipped entirely when nothing in the config references a
// secret, so clusters without Secret Manager access can still run with
// literal config values (e.g. local development against a kubeconfig).
func resolveSecrets(ctx context.Context, cfg *config.Config) error {
	if !secrets.IsReference(cfg.GitHub.PrivateKeySecret) &&
		!secrets.IsReference(cfg.Slack.Token) &&
		!secrets.IsReference(cfg.GitHub.WebhookSecret) {
		return nil
	}
	resolver, err := secrets.NewManagerClient(ctx)
	if err != nil {
		return fmt.Errorf("building secret manager client: %w", err)
	}
	defer resolver.Close()
	return cfg.ResolveSecrets(ctx, resolver)
}

func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*app, error) {
	restCfg, err := buildRestConfig(cfg.Kubernetes.Kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("building kubernetes client config: %w", err)
	}

	sc := scheme.Scheme
	if err := agentmeshv1alpha1.AddToScheme(sc); err != nil {
		return nil, fmt.Errorf("registering CRD scheme: %w", err)
	}

	k8sClient, err := client.New(restCfg, client.Options{Scheme: sc})
	if err != nil {
		return nil, fmt.Errorf("building kubernetes client: %w", err)
	}

	privateKey := []byte(cfg.GitHub.PrivateKeySecret)
	tokenManager, err := githubapp.NewTokenManager(cfg.GitHub.AppID, cfg.GitHub.InstallationID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("building github app token manager: %w", err)
	}
	transport := githubapp.NewTransport(tokenManager, nil)
	ghClient := github.NewClient(transport.Client())
	labelClient := githubapi.NewLabelClient(ghClient, cfg.GitHub.Owner, cfg.GitHub.Repository)

	states := remediation.NewStateManager()
	orchestrator := workflow.NewLabelOrchestrator(labelClient, states, states)

	schemaWatch, err := workflow.NewSchemaWatcher(cfg.Controller.TransitionsPath, orchestrator, log.Default())
	if err != nil {
		return nil, fmt.Errorf("starting transition table watcher: %w", err)
	}

	workloads := k8spkg.NewWorkloadClient(k8sClient, cfg.Kubernetes.Namespace)

	holderName, _ := os.Hostname()
	if holderName == "" {
		holderName = "agentmesh-controller"
	}

	canceller := cancel.New(workloads, states, func(lockName string) *lock.DistributedLock {
		return lock.New(k8sClient, cfg.Kubernetes.Namespace, lockName, holderName, "cancel")
	})

	mem := memory.NewClient(memory.ClientConfig{
		BaseURL:   cfg.Memory.BaseURL,
		Namespace: cfg.Memory.Namespace,
		Timeout:   cfg.Memory.Timeout,
	}, log.Default())

	var redisClient *redis.Client
	if cfg.Healer.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Healer.RedisAddr})
	}

	routerCfg := healer.RouterConfig{Profiles: cfg.Healer.Profiles, Repository: cfg.GitHub.Repository}
	pipelines := make(map[healer.Source]*healer.Pipeline, 3)
	for _, source := range []healer.Source{healer.SourceCI, healer.SourceWorkflow, healer.SourcePlatform} {
		pipelines[source] = healer.NewPipeline(source, healer.PipelineConfig{
			Router:        routerCfg,
			MaxConcurrent: cfg.Healer.MaxConcurrent,
			Namespace:     cfg.Kubernetes.Namespace,
			Redis:         redisClient,
			DedupWindow:   cfg.Healer.DedupWindow,
		}, workloads, mem, log.Default())
	}

	var escalation *healer.EscalationNotifier
	if cfg.EscalationEnabled() {
		escalation = healer.NewEscalationNotifier(cfg.Slack.Token, cfg.Slack.ChannelID)
	}

	return &app{
		cfg:          cfg,
		logger:       logger,
		k8sClient:    k8sClient,
		workloads:    workloads,
		orchestrator: orchestrator,
		schemaWatch:  schemaWatch,
		states:       states,
		parser:       remediation.NewParser(),
		canceller:    canceller,
		mem:          mem,
		pipelines:    pipelines,
		escalation:   escalation,
		holderName:   holderName,
	}, nil
}

func buildRestConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		return clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	return rest.InClusterConfig()
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/webhooks/alertmanager", a.handleAlertmanagerWebhook)
	mux.HandleFunc("/webhooks/github", a.handleGitHubWebhook)
	return mux
}
