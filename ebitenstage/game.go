package ebitenstage

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/arbor"
)

// RunConfig configures Run.
type RunConfig struct {
	Title string
	// Tick is called on the producer side once per tick before the posted
	// messages are flushed. elapsed is in seconds.
	Tick func(core *arbor.Core, elapsed float32) error
	// Sink receives the notifications of finished update frames.
	Sink arbor.NotificationSink
}

// Game drives a core from the ebiten loop. Each tick runs the producer, one
// update frame and notification delivery; each draw renders the latest
// published frame.
type Game struct {
	core    *arbor.Core
	backend *Backend
	cfg     RunConfig
}

// NewGame creates a game drawing core with a new backend.
func NewGame(core *arbor.Core, cfg RunConfig) *Game {
	return &Game{core: core, backend: NewBackend(core.Logger()), cfg: cfg}
}

// Backend returns the backend the game draws with.
func (g *Game) Backend() *Backend { return g.backend }

// Update implements ebiten.Game.
func (g *Game) Update() error {
	elapsed := float32(1) / float32(ebiten.TPS())
	if g.cfg.Tick != nil {
		if err := g.cfg.Tick(g.core, elapsed); err != nil {
			return err
		}
	}
	g.core.Flush()
	g.core.Update(elapsed)
	g.core.ProcessNotifications(g.cfg.Sink)
	return nil
}

// Draw implements ebiten.Game.
func (g *Game) Draw(screen *ebiten.Image) {
	g.backend.SetScreen(screen)
	g.core.Render(g.backend)
}

// Layout implements ebiten.Game. The screen is the size of the stage.
func (g *Game) Layout(_, _ int) (int, int) {
	st := g.core.Config().Stage
	return int(st.Width), int(st.Height)
}

// Run opens a window the size of the stage and runs core until the window
// closes or Tick returns an error.
func Run(core *arbor.Core, cfg RunConfig) error {
	st := core.Config().Stage
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(int(st.Width), int(st.Height))
	if err := ebiten.RunGame(NewGame(core, cfg)); err != nil {
		return fmt.Errorf("run %q: %w", cfg.Title, err)
	}
	return nil
}
