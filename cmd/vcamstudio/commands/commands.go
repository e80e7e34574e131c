package commands

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/cobra"

	"github.com/xaionaro-go/vcamstudio/pkg/capture"
	"github.com/xaionaro-go/vcamstudio/pkg/config"
	"github.com/xaionaro-go/vcamstudio/pkg/observability"
)

var (
	// Access these variables only from a main package:

	Root = &cobra.Command{
		Use: os.Args[0],
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			l := logger.FromCtx(ctx).WithLevel(LoggerLevel)
			ctx = logger.CtxWithLogger(ctx, l)
			cmd.SetContext(ctx)
			logger.Debugf(ctx, "log-level: %v", LoggerLevel)

			netPprofAddr, err := cmd.Flags().GetString("go-net-pprof-addr")
			if err != nil {
				l.Errorf("unable to get the value of the flag 'go-net-pprof-addr': %v", err)
			}
			if netPprofAddr != "" {
				observability.Go(ctx, func() {
					l.Infof("starting to listen for net/pprof requests at '%s'", netPprofAddr)
					l.Error(http.ListenAndServe(netPprofAddr, nil))
				})
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			logger.Debug(ctx, "end")
		},
	}

	Run = &cobra.Command{
		Use:  "run",
		Args: cobra.ExactArgs(0),
		Run:  run,
	}

	Config = &cobra.Command{
		Use: "config",
	}

	ConfigGet = &cobra.Command{
		Use:  "get",
		Args: cobra.ExactArgs(0),
		Run:  configGet,
	}

	Cameras = &cobra.Command{
		Use: "cameras",
	}

	CamerasList = &cobra.Command{
		Use:  "list",
		Args: cobra.ExactArgs(0),
		Run:  camerasList,
	}

	LoggerLevel = logger.LevelWarning
)

func init() {
	Root.AddCommand(Run)

	Root.AddCommand(Config)
	Config.AddCommand(ConfigGet)

	Root.AddCommand(Cameras)
	Cameras.AddCommand(CamerasList)

	Root.PersistentFlags().Var(&LoggerLevel, "log-level", "")
	Root.PersistentFlags().String("config", "vcamstudio.yaml", "the path to the config file")
	Root.PersistentFlags().String("go-net-pprof-addr", "", "address to listen to for net/pprof requests")

	CamerasList.Flags().Int("max-id", 9, "the highest device ID to probe")
}

func configGet(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	cfgPath, err := cmd.Flags().GetString("config")
	assertNoError(ctx, err)

	cfg, err := config.ReadFromPath(cfgPath)
	assertNoError(ctx, err)

	_, err = cfg.WriteTo(os.Stdout)
	assertNoError(ctx, err)
}

func camerasList(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	maxID, err := cmd.Flags().GetInt("max-id")
	assertNoError(ctx, err)

	ids := capture.ListCameras(ctx, maxID)
	if len(ids) == 0 {
		fmt.Println("no cameras found")
		return
	}
	for _, id := range ids {
		fmt.Printf("camera %d\n", id)
	}
}
