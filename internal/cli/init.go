package cli

import (
	"github.com/spf13/cobra"

	"github.com/skylock/skylock/internal/catalog"
	"github.com/skylock/skylock/internal/cli/runner"
	"github.com/skylock/skylock/internal/config"
	"github.com/skylock/skylock/internal/crypto"
	"github.com/skylock/skylock/internal/logging"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new vault (generates the owner's signing key)",
	Long: `Initialize a new skylock vault as its owner.

This generates an Ed25519 signing key pair, writes the initial
configuration, and creates an empty signed backup catalog. The
passphrase that encrypts file contents is never stored — it's supplied
fresh on every backup/restore/verify via --passphrase or
SKYLOCK_PASSPHRASE.`,
	Example: `  # Initialize with a local storage directory
  skylock init --name alice --local-path /mnt/backup-disk

  # Initialize against a remote skylock storage server
  skylock init --name alice --http-endpoint https://backup.example.com`,
	RunE: runners.Uninitialized().Wrap(runInit),
}

func init() {
	f := initCmd.Flags()
	f.StringP("name", "n", "", "Owner name/identifier")
	f.String("local-path", "", "Root directory for a local storage backend")
	f.String("http-endpoint", "", "Base URL of a remote skylock storage server")
	f.String("kdf-profile", string(config.KDFProfileBalanced), "KDF cost preset: balanced or paranoid")
	_ = initCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(initCmd)
}

func runInit(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	flags := runner.Flags(cmd)
	name := flags.String("name")
	localPath := flags.String("local-path")
	httpEndpoint := flags.String("http-endpoint")
	kdfProfile := config.KDFProfile(flags.String("kdf-profile"))
	if err := flags.Err(); err != nil {
		return err
	}

	if localPath == "" && httpEndpoint == "" {
		return cmdErrorf("one of --local-path or --http-endpoint is required")
	}

	if config.Exists("") {
		return cmdErrorf("already initialized (config dir: %s)", config.DefaultConfigDir())
	}

	pub, priv, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}

	cfg := config.New(name)
	cfg.PublicKey = pub
	cfg.PrivateKey = priv
	cfg.KDFProfile = kdfProfile
	cfg.ConfigDir = config.DefaultConfigDir()

	if localPath != "" {
		cfg.Storage = config.StorageConfig{Kind: config.StorageBackendLocal, LocalPath: localPath}
	} else {
		cfg.Storage = config.StorageConfig{Kind: config.StorageBackendHTTP, HTTPEndpoint: httpEndpoint}
	}

	if err := cfg.Save(); err != nil {
		return err
	}

	catalogDir := cfg.ConfigDir + "/catalog"
	keyID := crypto.KeyID(pub)
	cat, err := catalog.NewManager(catalogDir, keyID, priv, pub)
	if err != nil {
		return err
	}
	if err := cat.Initialize(); err != nil {
		return err
	}

	logging.Info("vault initialized", logging.String("name", name), logging.String("key_id", keyID))
	PrintSuccess("Initialized vault for %s", name)
	PrintInfo("Config:   %s/config.json", cfg.ConfigDir)
	PrintInfo("Key ID:   %s", keyID)
	PrintInfo("Catalog:  %s/catalog.json", catalogDir)
	return nil
}
