package ui

import (
	"context"
	"image/color"
	"time"

	"TimeRing/control"
	"TimeRing/engine"
	"TimeRing/i18n"
	"TimeRing/store"
	"TimeRing/timer"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// RefreshInterval bounds how often change events redraw the window.
const RefreshInterval = 100 * time.Millisecond

// App is what the window needs from the application.
type App interface {
	Timers() []timer.Snapshot
	Primary() (timer.Snapshot, bool)
	EnqueueCommand(cmd control.Command) error
	Subscribe() (<-chan engine.Event, func())
	Settings() store.Settings
	ApplySettings(s store.Settings)
	PreviewSound(path string)
	StopPreview()
}

// MainWindow renders engine snapshots: a prominent primary display and one
// row per timer.
type MainWindow struct {
	app    App
	window fyne.Window

	primaryID     string
	primaryState  timer.TimerState
	primaryBg     *canvas.Rectangle
	primaryName   *canvas.Text
	primaryTime   *canvas.Text
	primaryStatus *canvas.Text
	primaryAction *widget.Button
	primaryStop   *widget.Button

	list  *fyne.Container
	rows  map[string]*timerRow
	order []string

	// confirm asks before destructive actions; onOK runs only on approval.
	confirm func(title, message string, onOK func())
}

type timerRow struct {
	id     string
	state  timer.TimerState
	bar    *canvas.Rectangle
	name   *widget.Label
	time   *canvas.Text
	status *canvas.Text
	action *widget.Button
	stop   *widget.Button
	obj    fyne.CanvasObject
}

// CreateMainWindow builds the window. Call Watch to keep it up to date.
func CreateMainWindow(a App, fyneApp fyne.App) *MainWindow {
	title := fyneApp.Metadata().Name
	if title == "" {
		title = "TimeRing"
	}
	m := &MainWindow{
		app:    a,
		window: fyneApp.NewWindow(title),
		rows:   make(map[string]*timerRow),
		list:   container.NewVBox(),
	}
	m.confirm = m.showConfirm

	header := m.buildPrimary()
	toolbar := container.NewHBox(
		widget.NewButtonWithIcon(i18n.T("New Timer"), theme.ContentAddIcon(), m.ShowCreateDialog),
		layout.NewSpacer(),
		widget.NewButtonWithIcon(i18n.T("Settings"), theme.SettingsIcon(), m.ShowSettingsDialog),
	)

	m.window.Canvas().SetOnTypedRune(m.HandleKeyRune)
	m.window.SetContent(container.NewBorder(
		container.NewVBox(header, toolbar, widget.NewSeparator()),
		nil, nil, nil,
		container.NewVScroll(m.list),
	))
	m.window.Resize(fyne.NewSize(WindowWidth, WindowHeight))
	m.Refresh()
	return m
}

// Window returns the underlying fyne window.
func (m *MainWindow) Window() fyne.Window {
	return m.window
}

func (m *MainWindow) buildPrimary() fyne.CanvasObject {
	m.primaryBg = canvas.NewRectangle(withAlpha(BackgroundColor, 0xff))
	m.primaryBg.CornerRadius = CornerRadius

	m.primaryName = canvas.NewText("", color.White)
	m.primaryName.TextSize = FontSizePrimaryName
	m.primaryName.Alignment = fyne.TextAlignCenter

	m.primaryTime = canvas.NewText("--:--", color.White)
	m.primaryTime.TextSize = FontSizePrimaryTime
	m.primaryTime.TextStyle.Monospace = true
	m.primaryTime.Alignment = fyne.TextAlignCenter

	m.primaryStatus = canvas.NewText("", FinishedColor)
	m.primaryStatus.Alignment = fyne.TextAlignCenter

	m.primaryAction = widget.NewButton(i18n.T("Pause"), func() { m.primaryCommand(false) })
	m.primaryStop = widget.NewButton(i18n.T("Stop"), func() { m.primaryCommand(true) })

	display := container.NewVBox(
		m.primaryName,
		m.primaryTime,
		m.primaryStatus,
		container.NewCenter(container.NewHBox(m.primaryAction, m.primaryStop)),
	)
	tappable := NewTappableContainer(container.NewStack(m.primaryBg, container.NewPadded(display)),
		func() { m.primaryCommand(false) }, nil)
	return container.NewPadded(tappable)
}

// primaryCommand toggles or stops the primary timer.
func (m *MainWindow) primaryCommand(stop bool) {
	if m.primaryID == "" {
		return
	}
	m.act(m.primaryID, m.primaryName.Text, m.primaryState, stop)
}

// act sends the command for a button press. Rerunning a finished timer asks
// first.
func (m *MainWindow) act(id, name string, state timer.TimerState, stop bool) {
	cmd := actionCommand(id, state, stop)
	if cmd.Type != control.CmdRerun {
		m.send(cmd)
		return
	}
	m.confirm(i18n.T("Rerun"), i18n.Tf("Rerun timer '%s'?", name), func() { m.send(cmd) })
}

// actionCommand maps a button press on a timer in state to its command.
func actionCommand(id string, state timer.TimerState, stop bool) control.Command {
	switch {
	case stop || state == timer.StateRinging:
		return control.Command{Type: control.CmdStop, TimerID: id}
	case state == timer.StateFinished:
		return control.Command{Type: control.CmdRerun, TimerID: id}
	}
	return control.Command{Type: control.CmdPauseResume, TimerID: id}
}

func (m *MainWindow) send(cmd control.Command) {
	if err := m.app.EnqueueCommand(cmd); err != nil {
		dialog.ShowError(err, m.window)
	}
	m.Refresh()
}

func (m *MainWindow) newRow(id string) *timerRow {
	r := &timerRow{id: id}
	r.bar = canvas.NewRectangle(FinishedColor)
	r.bar.SetMinSize(fyne.NewSize(6, 0))
	r.bar.CornerRadius = 3
	r.name = widget.NewLabel("")
	r.name.Truncation = fyne.TextTruncateEllipsis
	r.time = canvas.NewText("--:--", theme.Color(theme.ColorNameForeground))
	r.time.TextSize = FontSizeRowTime
	r.time.TextStyle.Monospace = true
	r.status = canvas.NewText("", FinishedColor)

	r.action = widget.NewButton("", func() { m.act(id, r.name.Text, r.state, false) })
	r.stop = widget.NewButtonWithIcon("", theme.MediaStopIcon(), func() {
		m.send(control.Command{Type: control.CmdStop, TimerID: id})
	})
	edit := widget.NewButtonWithIcon("", theme.DocumentCreateIcon(), func() { m.ShowEditDialog(id) })
	del := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() { m.confirmDelete(id) })

	info := container.NewVBox(r.name, container.NewHBox(r.time, r.status))
	buttons := container.NewHBox(r.action, r.stop, edit, del)
	body := container.NewBorder(nil, nil, r.bar, buttons, info)
	padded := container.New(layout.NewCustomPaddedLayout(RowSpacing, RowSpacing, 0, 0), body)
	r.obj = NewTappableContainer(padded, nil, func(*fyne.PointEvent) { m.ShowEditDialog(id) })
	return r
}

func (r *timerRow) update(s timer.Snapshot) {
	r.state = s.State
	r.name.SetText(s.Name)
	r.time.Text = timer.FormatTime(s.RemainingSeconds)
	r.status.Text = StatusText(s.State)
	r.status.Color = StatusColor(s.State)
	r.bar.FillColor = StatusColor(s.State)
	r.action.SetText(ActionText(s.State))
	if s.State == timer.StateFinished {
		r.stop.Disable()
	} else {
		r.stop.Enable()
	}
	r.time.Refresh()
	r.status.Refresh()
	r.bar.Refresh()
}

func (m *MainWindow) confirmDelete(id string) {
	name := id
	if r, ok := m.rows[id]; ok {
		name = r.name.Text
	}
	m.confirm(i18n.T("Delete"), i18n.Tf("Delete timer '%s'?", name), func() {
		m.send(control.Command{Type: control.CmdDelete, TimerID: id})
	})
}

func (m *MainWindow) showConfirm(title, message string, onOK func()) {
	dialog.ShowConfirm(title, message, func(ok bool) {
		if ok {
			onOK()
		}
	}, m.window)
}

// Refresh redraws the window from fresh snapshots. Safe from any goroutine.
func (m *MainWindow) Refresh() {
	timers := m.app.Timers()
	primary, hasPrimary := m.app.Primary()
	fyne.Do(func() {
		m.render(timers, primary, hasPrimary)
	})
}

func (m *MainWindow) render(timers []timer.Snapshot, primary timer.Snapshot, hasPrimary bool) {
	if hasPrimary {
		m.primaryID = primary.ID
		m.primaryState = primary.State
		m.primaryName.Text = primary.Name
		m.primaryTime.Text = timer.FormatTime(primary.RemainingSeconds)
		m.primaryStatus.Text = StatusText(primary.State)
		m.primaryStatus.Color = StatusColor(primary.State)
		m.primaryBg.FillColor = withAlpha(StatusColor(primary.State), 0x40)
		m.primaryAction.SetText(ActionText(primary.State))
		m.primaryAction.Show()
		m.primaryStop.Show()
	} else {
		m.primaryID = ""
		m.primaryName.Text = i18n.T("No active timer")
		m.primaryTime.Text = "--:--"
		m.primaryStatus.Text = ""
		m.primaryBg.FillColor = BackgroundColor
		m.primaryAction.Hide()
		m.primaryStop.Hide()
	}
	m.primaryName.Refresh()
	m.primaryTime.Refresh()
	m.primaryStatus.Refresh()
	m.primaryBg.Refresh()

	order := make([]string, 0, len(timers))
	seen := make(map[string]bool, len(timers))
	for _, s := range timers {
		r, ok := m.rows[s.ID]
		if !ok {
			r = m.newRow(s.ID)
			m.rows[s.ID] = r
		}
		r.update(s)
		order = append(order, s.ID)
		seen[s.ID] = true
	}
	for id := range m.rows {
		if !seen[id] {
			delete(m.rows, id)
		}
	}
	if !sameOrder(order, m.order) {
		m.order = order
		objects := make([]fyne.CanvasObject, 0, len(order))
		for _, id := range order {
			objects = append(objects, m.rows[id].obj)
		}
		m.list.Objects = objects
		m.list.Refresh()
	}
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Watch redraws on engine change events, at most once per RefreshInterval,
// until ctx is done.
func (m *MainWindow) Watch(ctx context.Context) {
	events, cancel := m.app.Subscribe()
	defer cancel()

	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()

	dirty := false
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			dirty = true
		case <-ticker.C:
			if dirty {
				dirty = false
				m.Refresh()
			}
		}
	}
}

// HandleKeyRune handles key presses for the application.
func (m *MainWindow) HandleKeyRune(r rune) {
	switch r {
	case ' ':
		m.primaryCommand(false)
	case 's', 'S':
		m.primaryCommand(true)
	case 'n', 'N':
		m.ShowCreateDialog()
	}
}

type TappableContainer struct {
	widget.BaseWidget
	Content           fyne.CanvasObject
	OnTappedPrimary   func()
	OnTappedSecondary func(e *fyne.PointEvent)
}

func NewTappableContainer(c fyne.CanvasObject, onP func(), onS func(e *fyne.PointEvent)) *TappableContainer {
	t := &TappableContainer{
		Content:           c,
		OnTappedPrimary:   onP,
		OnTappedSecondary: onS,
	}
	t.ExtendBaseWidget(t)
	return t
}

func (t *TappableContainer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(t.Content)
}

func (t *TappableContainer) Tapped(_ *fyne.PointEvent) {
	if t.OnTappedPrimary != nil {
		t.OnTappedPrimary()
	}
}

func (t *TappableContainer) TappedSecondary(e *fyne.PointEvent) {
	if t.OnTappedSecondary != nil {
		t.OnTappedSecondary(e)
	}
}
