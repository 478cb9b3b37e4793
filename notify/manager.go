package notify

import (
	"context"

	"github.com/rs/zerolog"

	"smartmoney/shared"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// maxSendRetries is the maximum number of delivery retries per message.
	maxSendRetries = 3
)

// Messenger defines the requirements for delivering messages.
type Messenger interface {
	// SendWithRetry delivers the provided message, retrying on failure.
	SendWithRetry(ctx context.Context, message string, maxRetries int) error
}

// ManagerConfig represents the notification manager configuration.
type ManagerConfig struct {
	// Messenger delivers rendered messages.
	Messenger Messenger
	// PricePrecisions maps markets to their display precision.
	PricePrecisions map[string]int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Manager delivers confirmed setups. Delivery sits behind its own channel so a
// slow or failing send never stalls detection, and a delivery failure is
// logged without re-entering evaluation.
type Manager struct {
	cfg          *ManagerConfig
	setupSignals chan shared.SetupSignal
}

// NewManager initializes a new notification manager.
func NewManager(cfg *ManagerConfig) *Manager {
	return &Manager{
		cfg:          cfg,
		setupSignals: make(chan shared.SetupSignal, bufferSize),
	}
}

// SendSetupSignal relays the provided setup signal for delivery.
func (m *Manager) SendSetupSignal(signal shared.SetupSignal) {
	select {
	case m.setupSignals <- signal:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("setup signal channel at capacity: %d/%d",
			len(m.setupSignals), bufferSize)
	}
}

// handleSetupSignal delivers the provided setup signal.
func (m *Manager) handleSetupSignal(ctx context.Context, signal *shared.SetupSignal) {
	defer func() {
		signal.Status <- shared.Processed
	}()

	message := formatSetupMessage(&signal.Setup, m.cfg.PricePrecisions[signal.Setup.Market])

	err := m.cfg.Messenger.SendWithRetry(ctx, message, maxSendRetries)
	if err != nil {
		m.cfg.Logger.Error().Msgf("delivering setup %s: %v", signal.Setup.ID, err)
		return
	}

	m.cfg.Logger.Info().Msgf("delivered setup %s", signal.Setup.ID)
}

// Run manages the lifecycle processes of the notification manager.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-m.setupSignals:
			m.handleSetupSignal(ctx, &signal)
		}
	}
}
