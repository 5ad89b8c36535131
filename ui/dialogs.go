package ui

import (
	"strings"

	"TimeRing/control"
	"TimeRing/i18n"
	"TimeRing/store"
	"TimeRing/timer"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

// SoundExtensions are the audio files offered by the sound pickers.
var SoundExtensions = []string{".mp3", ".wav", ".ogg", ".oga"}

// soundPicker is a label plus browse/reset buttons bound to a path.
type soundPicker struct {
	path  string
	label *widget.Label
	obj   fyne.CanvasObject
}

func (m *MainWindow) newSoundPicker(path string, extra ...fyne.CanvasObject) *soundPicker {
	p := &soundPicker{path: path, label: widget.NewLabel(SoundLabel(path))}
	browse := widget.NewButton(i18n.T("Browse..."), func() {
		fd := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, m.window)
				return
			}
			if r == nil {
				return
			}
			defer r.Close()
			p.set(r.URI().Path())
		}, m.window)
		fd.SetFilter(storage.NewExtensionFileFilter(SoundExtensions))
		fd.Show()
	})
	reset := widget.NewButton(i18n.T("Reset"), func() { p.set("") })
	objs := append([]fyne.CanvasObject{browse}, extra...)
	objs = append(objs, reset)
	p.obj = container.NewBorder(nil, nil, nil, container.NewHBox(objs...), p.label)
	return p
}

func (p *soundPicker) set(path string) {
	p.path = path
	p.label.SetText(SoundLabel(path))
}

// descriptionEntry is a multi-line entry with a live word counter.
func descriptionEntry(text string) (*widget.Entry, fyne.CanvasObject) {
	entry := widget.NewMultiLineEntry()
	entry.Wrapping = fyne.TextWrapWord
	entry.SetMinRowsVisible(3)
	count := widget.NewLabel(WordCountText(text))
	entry.OnChanged = func(s string) { count.SetText(WordCountText(s)) }
	entry.SetText(text)
	return entry, container.NewBorder(nil, count, nil, nil, entry)
}

// parseCreateForm validates the create dialog inputs.
func parseCreateForm(name, duration, description, sound string) (timer.TimerConfig, error) {
	secs, err := timer.ParseClock(duration)
	if err != nil {
		return timer.TimerConfig{}, err
	}
	if err := timer.ValidateDescription(description); err != nil {
		return timer.TimerConfig{}, err
	}
	cfg := timer.TimerConfig{
		Name:         name,
		TotalSeconds: secs,
		Description:  description,
		SoundPath:    sound,
	}.Normalize()
	return cfg, cfg.Validate()
}

// ShowCreateDialog asks for a new timer and starts it.
func (m *MainWindow) ShowCreateDialog() {
	name := widget.NewEntry()
	name.SetPlaceHolder(i18n.T("Name"))
	duration := widget.NewEntry()
	duration.SetPlaceHolder(i18n.T("hh:mm:ss, mm:ss or seconds"))

	presets := container.NewHBox()
	for _, p := range Presets {
		secs := p.Seconds
		presets.Add(widget.NewButton(p.Label, func() { duration.SetText(timer.FormatTime(secs)) }))
	}

	desc, descBox := descriptionEntry("")
	sound := m.newSoundPicker("")

	form := widget.NewForm(
		widget.NewFormItem(i18n.T("Name"), name),
		widget.NewFormItem(i18n.T("Duration"), container.NewVBox(duration, presets)),
		widget.NewFormItem(i18n.T("Description"), descBox),
		widget.NewFormItem(i18n.T("Sound"), sound.obj),
	)

	d := dialog.NewCustomConfirm(i18n.T("New Timer"), i18n.T("Create"), i18n.T("Cancel"), form, func(ok bool) {
		if !ok {
			return
		}
		cfg, err := parseCreateForm(name.Text, duration.Text, desc.Text, sound.path)
		if err != nil {
			dialog.ShowError(err, m.window)
			return
		}
		m.send(control.Command{Type: control.CmdCreate, Config: cfg})
	}, m.window)
	d.Resize(fyne.NewSize(WindowWidth, 0))
	d.Show()
	m.window.Canvas().Focus(name)
}

// ShowEditDialog edits the name, description and sound of a timer.
func (m *MainWindow) ShowEditDialog(id string) {
	var current timer.Snapshot
	found := false
	for _, s := range m.app.Timers() {
		if s.ID == id {
			current, found = s, true
			break
		}
	}
	if !found {
		return
	}

	name := widget.NewEntry()
	name.SetText(current.Name)
	desc, descBox := descriptionEntry(current.Description)
	sound := m.newSoundPicker(current.SoundPath)

	form := widget.NewForm(
		widget.NewFormItem(i18n.T("Name"), name),
		widget.NewFormItem(i18n.T("Description"), descBox),
		widget.NewFormItem(i18n.T("Sound"), sound.obj),
	)

	d := dialog.NewCustomConfirm(i18n.T("Edit"), i18n.T("Save"), i18n.T("Cancel"), form, func(ok bool) {
		if !ok {
			return
		}
		if err := timer.ValidateDescription(desc.Text); err != nil {
			dialog.ShowError(err, m.window)
			return
		}
		if strings.TrimSpace(name.Text) != current.Name || strings.TrimSpace(desc.Text) != current.Description {
			m.send(control.Command{Type: control.CmdEditDescription, TimerID: id, Name: name.Text, Description: desc.Text})
		}
		if sound.path != current.SoundPath {
			m.send(control.Command{Type: control.CmdEditSound, TimerID: id, SoundPath: sound.path})
		}
	}, m.window)
	d.Resize(fyne.NewSize(WindowWidth, 0))
	d.Show()
}

var urgencyOptions = []string{store.UrgencyLow, store.UrgencyNormal, store.UrgencyCritical}

// ShowSettingsDialog edits the process-wide settings.
func (m *MainWindow) ShowSettingsDialog() {
	s := m.app.Settings()

	notifications := widget.NewCheck(i18n.T("Show notifications"), nil)
	notifications.SetChecked(s.ShowNotifications)
	includeDesc := widget.NewCheck(i18n.T("Include description"), nil)
	includeDesc.SetChecked(s.IncludeDescription)
	urgency := widget.NewSelect(urgencyOptions, nil)
	urgency.SetSelected(s.NotificationUrgency)
	loop := widget.NewCheck(i18n.T("Loop sound"), nil)
	loop.SetChecked(s.LoopSound)
	autoStart := widget.NewCheck(i18n.T("Start saved timers automatically"), nil)
	autoStart.SetChecked(s.AutoStartTimers)
	saveState := widget.NewCheck(i18n.T("Save timers between sessions"), nil)
	saveState.SetChecked(s.SaveState)

	var sound *soundPicker
	preview := widget.NewButton(i18n.T("Preview"), func() { m.app.PreviewSound(sound.path) })
	sound = m.newSoundPicker(s.DefaultSound, preview)

	form := widget.NewForm(
		widget.NewFormItem("", notifications),
		widget.NewFormItem("", includeDesc),
		widget.NewFormItem(i18n.T("Urgency"), urgency),
		widget.NewFormItem(i18n.T("Default sound"), sound.obj),
		widget.NewFormItem("", loop),
		widget.NewFormItem("", autoStart),
		widget.NewFormItem("", saveState),
	)

	d := dialog.NewCustomConfirm(i18n.T("Settings"), i18n.T("Save"), i18n.T("Cancel"), form, func(ok bool) {
		m.app.StopPreview()
		if !ok {
			return
		}
		s.ShowNotifications = notifications.Checked
		s.IncludeDescription = includeDesc.Checked
		s.NotificationUrgency = urgency.Selected
		s.DefaultSound = sound.path
		s.LoopSound = loop.Checked
		s.AutoStartTimers = autoStart.Checked
		s.SaveState = saveState.Checked
		m.app.ApplySettings(s)
	}, m.window)
	d.Resize(fyne.NewSize(WindowWidth, 0))
	d.Show()
}
