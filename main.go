package main

import (
	"Nocturne/commands"
	"Nocturne/config"
	"Nocturne/db_client"
	"Nocturne/handlers"
	"Nocturne/redis_client"
	"Nocturne/session"
	"Nocturne/utils"
	"Nocturne/yt"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

var production *bool

func main() {
	// Sets Flag to Debug Mode
	production = flag.Bool("p", false, "enables production with json logging")
	flag.Parse()
	if *production {
		log.InitJSONLogger(&log.Config{Output: os.Stdout})
	} else {
		log.InitSimpleLogger(&log.Config{Output: os.Stdout})
	}

	// Sets up Configurations for Viper
	config.InitConfig()

	db_client.Init()

	progress, err := session.NewProgressScheduler()
	if err != nil {
		log.WithError(err).Error("Failed to start progress scheduler")
		return
	}

	// Creates Discord Bot Session
	s, err := discordgo.New("Bot " + viper.GetString("discord.token"))
	if err != nil {
		log.WithError(err)
		return
	}

	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info("Bot has registered handlers")
	})

	resolver := yt.NewResolver(redis_client.RDB)
	store := db_client.NewStore(db_client.DB)
	registry := session.NewRegistry(session.Deps{
		Transport:        session.NewDiscordTransport(s),
		Resolver:         resolver,
		Catalog:          store,
		NewPlayer:        func() session.StreamPlayer { return session.NewFFmpegPlayer() },
		Progress:         progress,
		ProgressInterval: time.Duration(viper.GetInt("progress.interval")) * time.Second,
	})

	// Configuring Intents and Adding Handlers
	handlers.HandlerConfig(s, registry)

	// Register Slash and Component Commands
	commands.RegisterSlashCommands(s, registry, resolver, store)

	// Connecting to Discord Server Gateway
	s.Open()
	log.Info("Bot is initialising")

	StartCacheCleaning()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc
	gracefulShutdown(s, registry, progress)
}

// gracefulShutdown handles cleaning up after the bot is shutdown
func gracefulShutdown(s *discordgo.Session, registry *session.Registry, progress *session.ProgressScheduler) {
	log.Info("Starting graceful shutdown...")

	registry.StopAll()
	progress.Shutdown()

	for _, vc := range s.VoiceConnections {
		if vc != nil {
			vc.Disconnect()
		}
	}

	time.Sleep(5 * time.Second)

	s.Close()

	cleanUpCache()

	log.Info("Cleanly exiting")
}

// cleanUpCache removes old cached audio files
func cleanUpCache() {
	if _, err := os.Stat(utils.CacheDir); os.IsNotExist(err) {
		return
	}

	files, _ := os.ReadDir(utils.CacheDir)

	for _, file := range files {
		_ = os.RemoveAll(utils.CacheDir + "/" + file.Name())
	}

	log.Info("Cache cleanup completed")
}

// StartCacheCleaning starts the audio background cleanup
func StartCacheCleaning() {
	go func() {
		for {
			time.Sleep(1 * time.Hour)
			routineCacheCleaning()
		}
	}()
}

// routineCacheCleaning cleans up audio files which have been unused
func routineCacheCleaning() {
	log.Info("Beginning cache cleanup!")
	if _, err := os.Stat(utils.CacheDir); os.IsNotExist(err) {
		return
	}

	files, _ := os.ReadDir(utils.CacheDir)

	for _, file := range files {
		trackID := strings.TrimSuffix(file.Name(), ".opus")
		_, err := redis_client.RDB.Get(redis_client.Ctx, "audio:"+trackID).Result()
		if err == redis.Nil {
			_ = os.Remove(utils.CacheDir + "/" + file.Name())
		}
	}
}
