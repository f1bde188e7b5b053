package main

import (
	"fmt"
	"image/color"
	"slices"
	"strings"

	"github.com/ebitenui/ebitenui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	ebtext "github.com/hajimehoshi/ebiten/v2/text/v2"
	"go.uber.org/zap"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"

	"github.com/milk9111/collisioncallback/ecs"
	"github.com/milk9111/collisioncallback/ecs/component"
	"github.com/milk9111/collisioncallback/ecs/system"
	"github.com/milk9111/collisioncallback/prefabs"
)

const (
	baseWidth  = 1280
	baseHeight = 720

	overlayLines = 12
	lineHeight   = 14
)

var (
	backgroundColor = color.NRGBA{R: 0x14, G: 0x16, B: 0x1c, A: 0xff}
	textColor       = color.NRGBA{R: 0xe8, G: 0xe8, B: 0xe8, A: 0xff}
	dimTextColor    = color.NRGBA{R: 0x90, G: 0x96, B: 0xa0, A: 0xff}
)

type Game struct {
	sceneName string
	debug     bool
	logger    *zap.Logger

	world      *ecs.World
	contacts   *system.ContactSystem
	contactLog *system.ContactLogSystem
	scheduler  *ecs.Scheduler
	scene      *prefabs.Scene

	frames  int
	paused  bool
	status  string
	pauseUI *ebitenui.UI
	face    ebtext.Face

	watcher     *prefabs.Watcher
	clipboardOK bool
}

func NewGame(sceneName string, debug bool, logger *zap.Logger) (*Game, error) {
	g := &Game{
		sceneName:  sceneName,
		debug:      debug,
		logger:     logger,
		contactLog: system.NewContactLogSystem(0),
		face:       ebtext.NewGoXFace(basicfont.Face7x13),
	}
	if err := clipboard.Init(); err != nil {
		logger.Warn("clipboard unavailable", zap.Error(err))
	} else {
		g.clipboardOK = true
	}
	if err := g.loadScene(); err != nil {
		return nil, err
	}
	g.pauseUI = NewPauseUI(g)
	return g, nil
}

// loadScene builds the scene into a fresh world so a reload never inherits
// bodies or registries from the previous one.
func (g *Game) loadScene() error {
	spec, err := prefabs.LoadScene(g.sceneName)
	if err != nil {
		return err
	}

	world := ecs.NewWorld()
	contacts := system.NewContactSystem(g.logger.Named("contact"))
	scene, err := prefabs.BuildScene(world, spec, prefabs.BuildDeps{
		Contacts: contacts,
		Logger:   g.logger.Named("scene"),
	})
	if err != nil {
		return err
	}

	g.world = world
	g.contacts = contacts
	g.scene = scene
	g.contactLog.Reset()
	g.contactLog.Namer = scene.NameOf
	g.scheduler = ecs.NewScheduler(
		system.NewMovementSystem(),
		system.NewTTLSystem(),
		contacts,
		g.contactLog,
	)
	g.frames = 0
	g.status = fmt.Sprintf("loaded scene %q", spec.Name)
	return nil
}

func (g *Game) Restart() {
	if err := g.loadScene(); err != nil {
		g.logger.Error("scene reload failed", zap.String("scene", g.sceneName), zap.Error(err))
		g.status = "reload failed: " + err.Error()
	}
}

// CopyContactLog puts the contact log on the system clipboard.
func (g *Game) CopyContactLog() {
	if !g.clipboardOK {
		g.status = "clipboard unavailable"
		return
	}
	text := g.contactLog.String()
	clipboard.Write(clipboard.FmtText, []byte(text))
	g.status = fmt.Sprintf("copied %d contact lines", strings.Count(text, "\n"))
}

// Watch rebuilds the scene whenever a scene or script file changes on disk.
func (g *Game) Watch() error {
	w, err := prefabs.NewWatcher()
	if err != nil {
		return err
	}
	g.watcher = w
	return nil
}

func (g *Game) Close() {
	if g.watcher != nil {
		_ = g.watcher.Close()
	}
}

func (g *Game) pollWatcher() {
	if g.watcher == nil {
		return
	}
	changed := false
poll:
	for {
		select {
		case name, ok := <-g.watcher.Events:
			if !ok {
				g.watcher = nil
				break poll
			}
			g.logger.Info("prefab changed", zap.String("file", name))
			changed = true
		case err, ok := <-g.watcher.Errors:
			if !ok {
				g.watcher = nil
				break poll
			}
			g.logger.Warn("watcher error", zap.Error(err))
		default:
			break poll
		}
	}
	if changed {
		g.Restart()
	}
}

func (g *Game) Update() error {
	g.pollWatcher()

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.paused = !g.paused
	}
	if g.paused {
		g.pauseUI.Update()
		return nil
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.Restart()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		g.CopyContactLog()
	}

	g.frames++
	g.scheduler.Update(g.world)
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	DrawPhysicsDebug(g.contacts, screen)

	ecs.ForEach2(g.world, component.NameComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, name *component.Name, t *component.Transform) {
		g.drawText(screen, name.Value, t.X+12, t.Y-24, dimTextColor)
	})

	y := 10.0
	g.drawText(screen, fmt.Sprintf("Frames: %d    FPS: %.2f    contacts: %d", g.frames, ebiten.ActualFPS(), g.contactLog.Total()), 10, y, textColor)
	y += lineHeight
	for _, line := range g.executerStatus() {
		g.drawText(screen, line, 10, y, textColor)
		y += lineHeight
	}
	if g.debug {
		for _, line := range g.registryStats() {
			g.drawText(screen, line, 10, y, dimTextColor)
			y += lineHeight
		}
	}
	if g.status != "" {
		g.drawText(screen, g.status, 10, y, dimTextColor)
	}

	tail := g.contactLog.Tail(overlayLines)
	for i, line := range tail {
		g.drawText(screen, line, baseWidth-360, float64(baseHeight-lineHeight*(len(tail)-i)-10), dimTextColor)
	}
	g.drawText(screen, "esc: pause   r: restart   c: copy contact log", 10, baseHeight-lineHeight-10, dimTextColor)

	if g.paused {
		g.pauseUI.Draw(screen)
	}
}

func (g *Game) executerStatus() []string {
	var lines []string
	for e, x := range g.scene.Executers {
		lines = append(lines, fmt.Sprintf("%s: %s", g.scene.NameOf(e), x.Status()))
	}
	slices.Sort(lines)
	return lines
}

func (g *Game) registryStats() []string {
	var lines []string
	for e, reg := range g.scene.Registries {
		state := "attached"
		if reg.Inert() {
			state = "inert"
		} else if !g.world.IsAlive(e) {
			state = "destroyed"
		}
		lines = append(lines, fmt.Sprintf("%s: %s registrations=%d dispatches=%d invocations=%d",
			g.scene.NameOf(e), state, reg.Len(), reg.Dispatches(), reg.Invocations()))
	}
	slices.Sort(lines)
	return lines
}

func (g *Game) drawText(screen *ebiten.Image, s string, x, y float64, clr color.Color) {
	op := &ebtext.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	op.LineSpacing = lineHeight
	ebtext.Draw(screen, strings.TrimRight(s, "\n"), g.face, op)
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	return baseWidth, baseHeight
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	panic("shouldn't use Layout")
}
