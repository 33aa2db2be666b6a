package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Retroinn/MotoCrew/config"
	"github.com/Retroinn/MotoCrew/database"
	"github.com/Retroinn/MotoCrew/logger"
	"github.com/Retroinn/MotoCrew/store"
	"github.com/Retroinn/MotoCrew/web"
	"github.com/Retroinn/MotoCrew/web/service"

	"github.com/joho/godotenv"
	"github.com/op/go-logging"
	"github.com/spf13/cobra"
)

func runWebServer() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())

	switch config.GetLogLevel() {
	case config.Debug:
		logger.InitLogger(logging.DEBUG)
	case config.Info:
		logger.InitLogger(logging.INFO)
	case config.Notice:
		logger.InitLogger(logging.NOTICE)
	case config.Warn:
		logger.InitLogger(logging.WARNING)
	case config.Error:
		logger.InitLogger(logging.ERROR)
	default:
		log.Fatal("unknown log level:", config.GetLogLevel())
	}

	if err := database.InitDB(config.GetDBPath()); err != nil {
		log.Fatal(err)
	}

	if store.IsRemoteConfigured() {
		logger.Info("hosted backend configured, operating in remote mode")
	} else {
		logger.Info("no hosted backend configured, operating in local mock mode")
	}

	server := web.NewServer()
	if err := server.Start(); err != nil {
		log.Println(err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			server = web.NewServer()
			if err := server.Start(); err != nil {
				log.Println(err)
				return
			}
		default:
			_ = server.Stop()
			return
		}
	}
}

func resetSetting() {
	if err := database.InitDB(config.GetDBPath()); err != nil {
		fmt.Println(err)
		return
	}

	settingService := service.SettingService{}
	if err := settingService.ResetSettings(); err != nil {
		fmt.Println("reset setting failed:", err)
	} else {
		fmt.Println("reset setting success")
	}
}

func showSetting() {
	if err := database.InitDB(config.GetDBPath()); err != nil {
		fmt.Println(err)
		return
	}

	settingService := service.SettingService{}
	port, err := settingService.GetPort()
	if err != nil {
		fmt.Println("get current port failed:", err)
	}
	basePath, err := settingService.GetBasePath()
	if err != nil {
		fmt.Println("get current base path failed:", err)
	}
	backend := "local mock"
	if store.IsRemoteConfigured() {
		backend = "remote"
	}
	fmt.Println("current panel settings as follows:")
	fmt.Println("port:", port)
	fmt.Println("base path:", basePath)
	fmt.Println("backend:", backend)
}

func updateTgbotSetting(tgBotToken, tgBotChatid string, enable bool) {
	if err := database.InitDB(config.GetDBPath()); err != nil {
		fmt.Println(err)
		return
	}

	settingService := service.SettingService{}

	if tgBotToken != "" {
		if err := settingService.SetTgBotToken(tgBotToken); err != nil {
			fmt.Println(err)
			return
		}
		fmt.Println("set bot token success")
	}
	if tgBotChatid != "" {
		if err := settingService.SetTgBotChatId(tgBotChatid); err != nil {
			fmt.Println(err)
			return
		}
		fmt.Println("set bot chat id success")
	}
	if err := settingService.SetTgbotEnabled(enable); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("set bot enabled to %v success\n", enable)
}

func main() {
	// Missing .env is fine, the environment may carry the settings directly.
	_ = godotenv.Load()

	var rootCmd = &cobra.Command{
		Use: "motocrew",
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var settingCmd = &cobra.Command{
		Use:   "setting",
		Short: "Set settings",
	}

	var resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Reset all settings",
		Run: func(cmd *cobra.Command, args []string) {
			resetSetting()
		},
	}

	var showCmd = &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Run: func(cmd *cobra.Command, args []string) {
			showSetting()
		},
	}

	var tgbotCmd = &cobra.Command{
		Use:   "tgbot",
		Short: "Update telegram bot settings",
		Run: func(cmd *cobra.Command, args []string) {
			tgbottoken, _ := cmd.Flags().GetString("tgbottoken")
			tgbotchatid, _ := cmd.Flags().GetString("tgbotchatid")
			enabletgbot, _ := cmd.Flags().GetBool("enabletgbot")
			updateTgbotSetting(tgbottoken, tgbotchatid, enabletgbot)
		},
	}

	tgbotCmd.Flags().String("tgbottoken", "", "set telegram bot token")
	tgbotCmd.Flags().String("tgbotchatid", "", "set telegram bot chat id")
	tgbotCmd.Flags().Bool("enabletgbot", false, "enable telegram bot notify")

	settingCmd.AddCommand(resetCmd, showCmd, tgbotCmd)
	rootCmd.AddCommand(runCmd, settingCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
