package main

import (
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trustedcore/attestation-gateway/attestation"
	"github.com/trustedcore/attestation-gateway/cmd/flags"
	"github.com/trustedcore/attestation-gateway/common"
	"github.com/trustedcore/attestation-gateway/httpserver"
	"github.com/trustedcore/attestation-gateway/interfaces"
	"github.com/trustedcore/attestation-gateway/metadata"
	"github.com/trustedcore/attestation-gateway/metrics"
	"github.com/trustedcore/attestation-gateway/secrets"
	"github.com/trustedcore/attestation-gateway/storage"
	"github.com/urfave/cli/v2"
)

var gatewayFlags []cli.Flag = append([]cli.Flag{
	flags.ListenAddrFlag,
	flags.StorageURIFlag,
	flags.CredentialsFileFlag,
	flags.SecretsFileFlag,
	flags.VaultAddrFlag,
	flags.VaultTokenFlag,
	flags.VaultMountFlag,
	flags.VaultPathFlag,
	flags.VerifyTimeoutSecondsFlag,
	flags.TrustedProtocolFlag,
	flags.LogServiceFlagFn(common.PackageName),
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:   "attestation-gateway",
		Usage:  "Attest operator enclaves and distribute signed metadata",
		Flags:  gatewayFlags,
		Action: runGateway,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runGateway(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	secretStore, err := setupSecretStore(cCtx, logger)
	if err != nil {
		logger.Error("Failed to set up secret store", "err", err)
		return err
	}

	credentialsFile, err := os.Open(cCtx.String(flags.CredentialsFileFlag.Name))
	if err != nil {
		logger.Error("Failed to open credentials file", "err", err)
		return err
	}
	resolver, err := httpserver.LoadStaticResolver(credentialsFile)
	credentialsFile.Close()
	if err != nil {
		logger.Error("Failed to load credentials file", "err", err)
		return err
	}

	storageURI := cCtx.String(flags.StorageURIFlag.Name)
	backend, err := storage.NewFactory(logger).BackendFor(storageURI)
	if err != nil {
		logger.Error("Failed to set up storage backend", "err", err)
		return err
	}

	tokens := attestation.NewTokenService()

	attestationSvc := attestation.NewService(tokens, secretStore, logger)
	attestationSvc.SetVerifyTimeout(time.Duration(cCtx.Int64(flags.VerifyTimeoutSecondsFlag.Name)) * time.Second)
	attestationSvc.RegisterVerifier(attestation.DCAPProtocol, attestation.NewDCAPVerifier(logger))
	if cCtx.Bool(flags.TrustedProtocolFlag.Name) {
		logger.Warn("Trusted protocol enabled, proofs for it are not verified")
		attestationSvc.RegisterVerifier(attestation.TrustedProtocol, attestation.TrustedVerifier{})
	}

	categories := []metadata.Category{
		metadata.CategoryKey, metadata.CategoryKeyACL, metadata.CategorySalt,
		metadata.CategoryClient, metadata.CategoryOperator, metadata.CategoryPartner,
	}
	providers := make([]*metadata.SnapshotProvider, 0, len(categories))
	for _, category := range categories {
		providers = append(providers, metadata.NewSnapshotProvider(category, secretStore, backend, logger))
	}

	metricsSrv, err := metrics.New(common.PackageName, cCtx.String(flags.MetricsAddrFlag.Name))
	if err != nil {
		logger.Error("Failed to set up metrics server", "err", err)
		return err
	}

	handler := httpserver.NewHandler(attestationSvc, tokens, resolver, secretStore, providers, metricsSrv, logger)

	cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name))

	health := httpserver.NewHealth()
	server, err := httpserver.New(cfg, handler, metricsSrv, health)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")

	return nil
}

// setupSecretStore picks Vault when an address is configured and falls
// back to the file-backed store otherwise.
func setupSecretStore(cCtx *cli.Context, logger *slog.Logger) (interfaces.SecretStore, error) {
	if vaultAddr := cCtx.String(flags.VaultAddrFlag.Name); vaultAddr != "" {
		logger.Info("Using Vault secret store", "address", vaultAddr)
		return secrets.NewVaultStore(
			vaultAddr,
			cCtx.String(flags.VaultTokenFlag.Name),
			cCtx.String(flags.VaultMountFlag.Name),
			cCtx.String(flags.VaultPathFlag.Name),
			logger,
		)
	}

	secretsPath := cCtx.String(flags.SecretsFileFlag.Name)
	if secretsPath == "" {
		return nil, errors.New("either secrets-file or vault-addr must be configured")
	}

	secretsFile, err := os.Open(secretsPath)
	if err != nil {
		return nil, err
	}
	defer secretsFile.Close()

	logger.Info("Using file secret store", "file", secretsPath)
	return secrets.LoadStaticStore(secretsFile)
}
