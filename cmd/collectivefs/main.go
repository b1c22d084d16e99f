// Command collectivefs inspects and provisions collective mounts.
//
// Usage:
//
//	collectivefs mounts --principal alice [--config path]
//	collectivefs provision --collective 7 [--config path]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/collectivefs/collectivefs/internal/logger"
	"github.com/collectivefs/collectivefs/pkg/collective"
	"github.com/collectivefs/collectivefs/pkg/config"
	"github.com/collectivefs/collectivefs/pkg/events"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "mounts":
		err = runMounts(os.Args[2:])
	case "provision":
		err = runProvision(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: collectivefs <mounts|provision> [flags]")
}

// env bundles the wired-up subsystem for one CLI invocation.
type env struct {
	cfg      *config.Config
	provider *collective.MountProvider
	folders  *collective.FolderManager
	close    func() error
}

// setup loads configuration and builds the mount subsystem.
func setup(ctx context.Context, configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger.SetLevel(cfg.Logging.Level)
	switch cfg.Logging.Output {
	case "stdout", "":
		// Default.
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		f, err := os.OpenFile(cfg.Logging.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(f)
	}

	rootStorage, err := config.CreateStorage(ctx, &cfg.Storage)
	if err != nil {
		return nil, err
	}

	backend, closeCache, err := config.CreateCache(ctx, &cfg.Cache)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	collective.NewCacheEventBridge().Register(bus)

	resolver := collective.NewRootResolver(cfg)
	folders := collective.NewFolderManager(rootStorage, resolver, cfg.Collectives.SkeletonManifest)
	membership := collective.NewStaticMembership(cfg.Collectives.MembershipTable())

	provider := collective.NewMountProvider(collective.MountProviderParams{
		Folders:       folders,
		Resolver:      resolver,
		Membership:    membership,
		CacheBackend:  backend,
		Bus:           bus,
		FallbackOwner: cfg.Collectives.DefaultOwner,
	})

	return &env{cfg: cfg, provider: provider, folders: folders, close: closeCache}, nil
}

// runMounts prints every mount in a principal's view.
func runMounts(args []string) error {
	fs := flag.NewFlagSet("mounts", flag.ExitOnError)
	principal := fs.String("principal", "", "principal whose mounts to list")
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *principal == "" {
		return fmt.Errorf("--principal is required")
	}

	ctx := context.Background()
	e, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer e.close()

	mounts, err := e.provider.MountsForPrincipal(ctx, *principal)
	if err != nil {
		return err
	}

	if len(mounts) == 0 {
		fmt.Printf("no collective mounts for %s\n", *principal)
		return nil
	}
	for _, m := range mounts {
		owner := "<none>"
		if o, ok := m.Storage().Owner(); ok {
			owner = o
		}
		fmt.Printf("%-40s source=%s folder=%d owner=%s\n",
			m.MountPath(), m.SourcePath(), m.FolderID(), owner)
	}
	return nil
}

// runProvision forces container-folder provisioning for one collective.
func runProvision(args []string) error {
	fs := flag.NewFlagSet("provision", flag.ExitOnError)
	collectiveID := fs.Int64("collective", 0, "collective id to provision")
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *collectiveID <= 0 {
		return fmt.Errorf("--collective must be a positive id")
	}

	ctx := context.Background()
	e, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer e.close()

	folder, err := e.folders.Folder(ctx, *collectiveID, true)
	if err != nil {
		return err
	}
	fmt.Printf("container folder ready: %s\n", folder.Path)
	return nil
}
