package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/httprunner/DroidProbe/internal/env"
)

var rootCmd = &cobra.Command{
	Use:   "droidprobe",
	Short: "Read-only Android device state analysis over adb",
	Long: `droidprobe inspects devices attached over the Android debug bridge and reports
identity, hardware, root status, bootloader and verified-boot state, and LineageOS
compatibility. The only device-changing operation is a confirmed reboot.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	},
}

var (
	flagSerial    string
	flagADB       string
	flagTransport string
	flagROMDB     string
	flagHistoryDB string
	flagVerbose   bool
)

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagSerial, "serial", "s", "", "device serial (defaults to the only or last used device)")
	pf.StringVar(&flagADB, "adb", "", "adb executable, overrides $ADB_PATH and the saved config")
	pf.StringVar(&flagTransport, "transport", "", "bridge transport: exec or server (overrides $BRIDGE_TRANSPORT)")
	pf.StringVar(&flagROMDB, "rom-db", "", "LineageOS device database JSON (overrides $ROM_DB_PATH)")
	pf.StringVar(&flagHistoryDB, "history-db", "", "scan history SQLite file, \"off\" disables (overrides $SCAN_HISTORY_DB)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		newDevicesCmd(),
		newInfoCmd(),
		newRootCmd(),
		newBootloaderCmd(),
		newSecurityCmd(),
		newROMCmd(),
		newReportCmd(),
		newRebootCmd(),
		newConfigCmd(),
		newHistoryCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)
	_ = env.Ensure()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("droidprobe command failed")
	}
}
