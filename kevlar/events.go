package kevlar

// Event names accepted by the host's network event subscription API.
type Event = string

const (
	ImageChanged             Event = "imageChanged"
	GeneratorMenuChanged     Event = "generatorMenuChanged"
	GeneratorDocActivated    Event = "generatorDocActivated"
	ForegroundColorChanged   Event = "foregroundColorChanged"
	BackgroundColorChanged   Event = "backgroundColorChanged"
	CurrentDocumentChanged   Event = "currentDocumentChanged"
	ActiveViewChanged        Event = "activeViewChanged"
	NewDocumentViewCreated   Event = "newDocumentViewCreated"
	ClosedDocument           Event = "closedDocument"
	DocumentChanged          Event = "documentChanged"
	ColorSettingsChanged     Event = "colorSettingsChanged"
	KeyboardShortcutsChanged Event = "keyboardShortcutsChanged"
	QuickMaskStateChanged    Event = "quickMaskStateChanged"
	ToolChanged              Event = "toolChanged"
	WorkspaceChanged         Event = "workspaceChanged"
	Idle                     Event = "idle"
)
