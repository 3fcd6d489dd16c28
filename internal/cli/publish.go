package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"rtool/pkg/config"
	"rtool/pkg/publish"
)

const dialTimeout = 30 * time.Second

func (a *App) newUploadReleaseCmd() *cobra.Command {
	var (
		username, password, repository string
		opts                           publish.ReleaseOpts
	)

	cmd := &cobra.Command{
		Use:   "upload-release",
		Short: "Upload the release distributions to the package index",
		Args:  usageArgs(cobra.NoArgs),
		RunE: runE(a.tracked("upload-release", func(ctx context.Context, projects []config.Project, _ []string) error {
			creds, err := a.indexCredentials(username, password, repository)
			if err != nil {
				return err
			}
			return a.publisher().UploadRelease(ctx, projects, creds, opts)
		})),
	}

	flags := cmd.Flags()
	flags.StringVar(&username, "username", "", "Package index username (env PYPI_USERNAME)")
	flags.StringVar(&password, "password", "", "Package index password (env PYPI_PASSWORD)")
	flags.StringVar(&repository, "repository", "", "Upload client repository name (default from config)")
	addSwitch(flags, &opts.Sdist, "sdist", true, "Upload source distributions")
	addSwitch(flags, &opts.Wheel, "wheel", true, "Upload wheels")
	return cmd
}

func (a *App) indexCredentials(username, password, repository string) (publish.IndexCredentials, error) {
	var values [2]string
	for i, c := range indexCredentialSources(username, password) {
		v, err := a.resolve(c)
		if err != nil {
			return publish.IndexCredentials{}, err
		}
		values[i] = v
	}
	return publish.IndexCredentials{
		Username:   values[0],
		Password:   values[1],
		Repository: repository,
	}, nil
}

//nolint:govet // Mirrors the flag order.
type snapshotFlags struct {
	host       string
	port       int
	user       string
	privateKey string
	passphrase string
	knownHosts string
	opts       publish.SnapshotOpts
}

func (a *App) newUploadSnapshotCmd() *cobra.Command {
	var f snapshotFlags

	cmd := &cobra.Command{
		Use:   "upload-snapshot",
		Short: "Upload snapshot builds to the snapshot server and update the latest links",
		Args:  usageArgs(cobra.NoArgs),
		RunE: runE(a.tracked("upload-snapshot", func(ctx context.Context, projects []config.Project, _ []string) error {
			dialer, err := a.snapshotDialer(f)
			if err != nil {
				return err
			}
			return a.publisher().UploadSnapshot(ctx, a.dialer(dialer), projects, f.opts)
		})),
	}

	flags := cmd.Flags()
	flags.StringVar(&f.host, "host", "", "Snapshot server host (env SNAPSHOT_HOST)")
	flags.IntVar(&f.port, "port", 0, "Snapshot server SSH port (env SNAPSHOT_PORT, default 22)")
	flags.StringVar(&f.user, "user", "", "Snapshot server user (env SNAPSHOT_USER)")
	flags.StringVar(&f.privateKey, "private-key", "", "Private key file (env SNAPSHOT_KEY, default <release-dir>/rtool.pem)")
	flags.StringVar(&f.passphrase, "private-key-password", "", "Private key passphrase (env SNAPSHOT_PASS)")
	flags.StringVar(&f.knownHosts, "known-hosts", "", "known_hosts file used to verify the server (default ~/.ssh/known_hosts)")
	addSwitch(flags, &f.opts.Sdist, "sdist", false, "Upload source distributions")
	addSwitch(flags, &f.opts.Wheel, "wheel", false, "Upload wheels")
	addSwitch(flags, &f.opts.Bdist, "bdist", false, "Upload frozen tool archives")
	return cmd
}

// snapshotDialer merges the flags over the configuration and asks for what is still missing.
func (a *App) snapshotDialer(f snapshotFlags) (*publish.SFTPDialer, error) {
	snap := a.cfg.Snapshot
	d := &publish.SFTPDialer{
		Host:       firstNonEmpty(f.host, snap.Host),
		Port:       snap.Port,
		PrivateKey: firstNonEmpty(f.privateKey, snap.PrivateKey),
		KnownHosts: firstNonEmpty(f.knownHosts, snap.KnownHosts),
		Timeout:    dialTimeout,
	}
	if f.port != 0 {
		d.Port = f.port
	}

	var err error
	if d.Host == "" {
		if d.Host, err = a.prompter.Input("Snapshot host"); err != nil {
			return nil, err
		}
	}
	d.User, err = a.resolve(credential{
		flag:   firstNonEmpty(f.user, snap.User),
		secret: config.SecretSnapshotUser,
		label:  "Snapshot user",
	})
	if err != nil {
		return nil, err
	}
	d.Passphrase, err = a.resolve(credential{
		flag:   f.passphrase,
		env:    config.SecretSnapshotPass,
		secret: config.SecretSnapshotPass,
		label:  "Private key password",
		hidden: true,
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
