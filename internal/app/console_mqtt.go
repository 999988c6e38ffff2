package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fatih/color"

	"github.com/relabs-tech/envbridge/internal/broker"
	"github.com/relabs-tech/envbridge/internal/config"
)

// RunConsoleMQTT subscribes to the three telemetry topics and prints every
// message to out until ctx is cancelled. Retained values are printed right
// after subscribing.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, log *slog.Logger, out io.Writer) error {
	client := broker.New(broker.Options{
		Host:      cfg.MQTTBroker,
		Port:      cfg.MQTTPort,
		ClientID:  cfg.MQTTClientID + "-console",
		Username:  cfg.MQTTUsername,
		Password:  cfg.MQTTPassword,
		KeepAlive: cfg.MQTTKeepAlive,
		Timeout:   cfg.MQTTTimeout,
	}, log)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Disconnect()
	log.Info("console: connected to MQTT broker", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)

	var mu sync.Mutex
	printLine := func(topic string, payload []byte) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(out, ConsoleLine(cfg, topic, payload))
	}

	for _, topic := range []string{cfg.TopicTemperature, cfg.TopicPressure, cfg.TopicHumidity} {
		if err := client.Subscribe(ctx, topic, printLine); err != nil {
			return err
		}
	}

	<-ctx.Done()
	log.Info("console: shutting down")
	return nil
}

// ConsoleLine formats one received message with a tag and a unit matching
// its topic.
func ConsoleLine(cfg *config.Config, topic string, payload []byte) string {
	tag, unit := "[????]", ""
	switch topic {
	case cfg.TopicTemperature:
		tag, unit = color.CyanString("[TEMP]"), "°C"
	case cfg.TopicPressure:
		tag, unit = color.GreenString("[PRES]"), "hPa"
	case cfg.TopicHumidity:
		tag, unit = color.BlueString("[HUM ]"), "%RH"
	}
	return fmt.Sprintf("%s %-32s %8s %s", tag, topic, payload, unit)
}
