package watcher

// ChangeAnalysis describes which parts of the store pipeline need to
// run after a batch of dataset changes
type ChangeAnalysis struct {
	// NeedImport means dump files changed and a fresh import is due.
	NeedImport bool
	// NeedReopen means the store file itself was replaced.
	NeedReopen bool
	// VerticesPaths and EdgesPaths are the dumps to import.
	VerticesPaths []string
	EdgesPaths    []string
	// StorePath is the replacement store, when NeedReopen is set.
	StorePath string
}

// AnalyzeChanges folds a batch of change events into one pipeline plan
func AnalyzeChanges(events []ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{}

	for _, event := range events {
		switch event.Type {
		case ChangeTypeVertices:
			analysis.NeedImport = true
			analysis.VerticesPaths = append(analysis.VerticesPaths, event.Paths...)

		case ChangeTypeEdges:
			analysis.NeedImport = true
			analysis.EdgesPaths = append(analysis.EdgesPaths, event.Paths...)

		case ChangeTypeStore:
			// A ready-made store supersedes importing dumps
			analysis.NeedReopen = true
			if len(event.Paths) > 0 {
				analysis.StorePath = event.Paths[len(event.Paths)-1]
			}
		}
	}

	return analysis
}
