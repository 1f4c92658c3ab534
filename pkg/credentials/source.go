package credentials

// Strategy names a credential resolution strategy.
type Strategy string

const (
	StrategyAmbient    Strategy = "ambient"
	StrategyFilePath   Strategy = "file_path"
	StrategyInlineJSON Strategy = "inline_json"
)

// Source describes where credentials come from. It is a closed set: the
// only implementations are Ambient, FilePath and InlineJSON, so a value
// cannot carry both a path and a payload.
type Source interface {
	Strategy() Strategy
	isSource()
}

// Ambient resolves application-default credentials from the environment.
type Ambient struct{}

// FilePath reads a service account key from a local file. The file must
// exist on every node that opens a connection.
type FilePath struct {
	Path string
}

// InlineJSON parses a service account key held in memory.
type InlineJSON struct {
	Payload string
}

func (Ambient) Strategy() Strategy    { return StrategyAmbient }
func (FilePath) Strategy() Strategy   { return StrategyFilePath }
func (InlineJSON) Strategy() Strategy { return StrategyInlineJSON }

func (Ambient) isSource()    {}
func (FilePath) isSource()   {}
func (InlineJSON) isSource() {}

// String keeps the payload out of logs and fmt output.
func (InlineJSON) String() string {
	return "InlineJSON{<redacted>}"
}

// FromMaterial picks the strategy for a piece of credential material:
// no material selects Ambient, otherwise isFilePath decides whether it is
// a path or a JSON document.
func FromMaterial(serviceAccount string, isFilePath bool) Source {
	switch {
	case serviceAccount == "":
		return Ambient{}
	case isFilePath:
		return FilePath{Path: serviceAccount}
	default:
		return InlineJSON{Payload: serviceAccount}
	}
}
