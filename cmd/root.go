package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/pulsar/internal/config"
	"github.com/papapumpkin/pulsar/internal/dispatch"
	"github.com/papapumpkin/pulsar/internal/editor"
	"github.com/papapumpkin/pulsar/internal/gitcli"
	"github.com/papapumpkin/pulsar/internal/message"
	"github.com/papapumpkin/pulsar/internal/patches"
	"github.com/papapumpkin/pulsar/internal/publish"
	"github.com/papapumpkin/pulsar/internal/recipients"
	"github.com/papapumpkin/pulsar/internal/tags"
	"github.com/papapumpkin/pulsar/internal/ui"
)

var rootCmd = &cobra.Command{
	Use:   "pulsar",
	Short: "Prepare and email git patch series stored as tags",
	Long: "Pulsar stages each revision of a patch series as a git tag, numbers\n" +
		"revisions automatically, and sends the series with git send-email\n" +
		"after an interactive inspection step.",
	RunE:         runPublish,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.New().Error(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .pulsar.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	f := rootCmd.Flags()
	f.String("topic", "", "topic name (default: current branch)")
	f.String("base", "", "base branch the series applies to")
	f.Int("number", 0, "revision number override")
	f.String("profile", "", "profile name (default: \"default\")")
	f.Bool("no-message", false, "stage without editing the tag message")
	f.Bool("edit", false, "edit the staging tag message and exit")
	f.Bool("annotate", false, "force an annotated staging tag")
	f.Bool("pull-request", false, "push a pull-request tag instead of emailing")
	f.StringSlice("to", nil, "To address (repeatable)")
	f.StringSlice("cc", nil, "Cc address (repeatable)")
	f.Bool("override-to", false, "ignore persisted/profile To for this run")
	f.Bool("override-cc", false, "ignore persisted/profile Cc for this run")
	f.Bool("forget-cc", false, "delete the persisted Cc list before resolving")
	f.Int("skip", 0, "drop this many leading files from the batch")
	f.String("subject-prefix", "", "subject prefix override")
	f.Bool("sign-off", false, "add Signed-off-by to each patch")
	f.Bool("notes", false, "append git notes to each patch")
	f.Bool("no-binary", false, "suppress binary diffs")
	f.StringSlice("header", nil, "extra mail header (repeatable)")
	f.Bool("cover-letter", false, "always produce a cover letter")
	f.Bool("no-cover-letter", false, "never produce a cover letter")
	f.String("in-reply-to", "", "Message-Id to reply to")
	f.Bool("no-thread", false, "do not thread the series")
	f.Bool("separate-send", false, "one send-email invocation per patch")
	f.String("suppress-cc", "", "value for send-email --suppress-cc")
	f.Bool("no-inspect", false, "skip the interactive inspection loop")
	f.Bool("setup", false, "verify send-email and identity, then exit")
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".pulsar")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("PULSAR")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

func runPublish(cmd *cobra.Command, args []string) error {
	tool := config.Load()
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		tool.Verbose = true
	}

	cli := gitcli.New(tool.GitPath)
	cli.Verbose = tool.Verbose
	repo := gitcli.NewRepo(cli)
	mgr := tags.NewManager(repo)

	edCommand, err := repo.Var(cmd.Context(), "GIT_EDITOR")
	var ed *editor.Editor
	if err == nil {
		ed, _ = editor.New(edCommand)
	}

	p := &publish.Publisher{
		Repo:       repo,
		Tags:       mgr,
		Recipients: recipients.NewStore(repo),
		Composer:   message.NewComposer(repo, mgr, ed),
		Assembler:  patches.NewAssembler(repo),
		Dispatcher: dispatch.New(cli),
		Editor:     ed,
		Tool:       tool,
		UI:         ui.New(),
		In:         os.Stdin,
		Out:        os.Stderr,
	}

	if setup, _ := cmd.Flags().GetBool("setup"); setup {
		if err := p.Setup(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "pulsar is ready to send email")
		return nil
	}

	opts, err := optionsFromFlags(cmd, tool)
	if err != nil {
		return err
	}
	return p.Run(cmd.Context(), opts)
}

func optionsFromFlags(cmd *cobra.Command, tool config.Tool) (publish.Options, error) {
	f := cmd.Flags()
	var opts publish.Options

	opts.Topic, _ = f.GetString("topic")
	opts.Base, _ = f.GetString("base")
	opts.Number, _ = f.GetInt("number")
	opts.Profile, _ = f.GetString("profile")
	opts.NoMessage, _ = f.GetBool("no-message")
	opts.EditOnly, _ = f.GetBool("edit")
	opts.Annotate, _ = f.GetBool("annotate")
	opts.PullRequest, _ = f.GetBool("pull-request")
	opts.To, _ = f.GetStringSlice("to")
	opts.Cc, _ = f.GetStringSlice("cc")
	opts.OverrideTo, _ = f.GetBool("override-to")
	opts.OverrideCc, _ = f.GetBool("override-cc")
	opts.ForgetCc, _ = f.GetBool("forget-cc")
	opts.Skip, _ = f.GetInt("skip")
	opts.SubjectPrefix, _ = f.GetString("subject-prefix")
	opts.Signoff, _ = f.GetBool("sign-off")
	opts.Notes, _ = f.GetBool("notes")
	opts.NoBinary, _ = f.GetBool("no-binary")
	opts.Headers, _ = f.GetStringSlice("header")
	opts.InReplyTo, _ = f.GetString("in-reply-to")
	opts.NoThread, _ = f.GetBool("no-thread")
	opts.SeparateSend, _ = f.GetBool("separate-send")
	opts.SuppressCc, _ = f.GetString("suppress-cc")

	cover, _ := f.GetBool("cover-letter")
	noCover, _ := f.GetBool("no-cover-letter")
	switch {
	case cover && noCover:
		return opts, fmt.Errorf("--cover-letter and --no-cover-letter are mutually exclusive")
	case cover:
		opts.Cover = patches.CoverAlways
	case noCover:
		opts.Cover = patches.CoverNever
	default:
		opts.Cover = patches.CoverAuto
	}

	noInspect, _ := f.GetBool("no-inspect")
	opts.Inspect = tool.Inspect && !noInspect

	return opts, nil
}
