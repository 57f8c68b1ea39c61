package sequencer

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
)

const saveTimeFormat = "2006-01-02_15-04-05"

// SaveInfo represents a saved snapshot file (for listing)
type SaveInfo struct {
	Filename  string
	Name      string // parsed from filename (empty if unnamed)
	Timestamp time.Time
}

// Projects stores timestamped snapshots in one folder per project:
// <Dir>/<project>/2006-01-02_15-04-05[_name].json
type Projects struct {
	Dir   string
	Clock clockwork.Clock // real clock when nil
}

// DefaultProjectsDir returns ~/.config/go-stepseq/projects
func DefaultProjectsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-stepseq", "projects"), nil
}

func (p Projects) now() time.Time {
	if p.Clock == nil {
		return time.Now()
	}
	return p.Clock.Now()
}

// ProjectDir returns the path to a specific project
func (p Projects) ProjectDir(project string) string {
	return filepath.Join(p.Dir, sanitizeFilename(project))
}

// List returns all project folder names
func (p Projects) List() ([]string, error) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var projects []string
	for _, entry := range entries {
		if entry.IsDir() {
			projects = append(projects, entry.Name())
		}
	}
	sort.Strings(projects)
	return projects, nil
}

// Saves returns timestamped saves for a project, newest first
func (p Projects) Saves(project string) ([]SaveInfo, error) {
	entries, err := os.ReadDir(p.ProjectDir(project))
	if err != nil {
		if os.IsNotExist(err) {
			return []SaveInfo{}, nil
		}
		return nil, err
	}

	var saves []SaveInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if info, ok := parseSaveName(entry.Name()); ok {
			saves = append(saves, info)
		}
	}

	sort.Slice(saves, func(i, j int) bool {
		if saves[i].Timestamp.Equal(saves[j].Timestamp) {
			return saves[i].Filename > saves[j].Filename
		}
		return saves[i].Timestamp.After(saves[j].Timestamp)
	})
	return saves, nil
}

// parseSaveName parses 2024-01-15_14-30-00.json or 2024-01-15_14-30-00_name.json
func parseSaveName(filename string) (SaveInfo, bool) {
	base := strings.TrimSuffix(filename, ".json")
	if len(base) < len(saveTimeFormat) {
		return SaveInfo{}, false
	}
	ts, err := time.Parse(saveTimeFormat, base[:len(saveTimeFormat)])
	if err != nil {
		return SaveInfo{}, false
	}
	name := ""
	if len(base) > len(saveTimeFormat)+1 && base[len(saveTimeFormat)] == '_' {
		name = base[len(saveTimeFormat)+1:]
	}
	return SaveInfo{Filename: filename, Name: name, Timestamp: ts}, true
}

// Save writes snap into the project under a fresh timestamp and returns the filename
func (p Projects) Save(project, name string, snap Snapshot) (string, error) {
	if project == "" {
		project = "untitled"
	}
	dir := p.ProjectDir(project)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "create project dir")
	}

	filename := p.now().Format(saveTimeFormat)
	if name != "" {
		filename += "_" + sanitizeFilename(name)
	}
	filename += ".json"

	f, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", errors.Wrap(err, "create save")
	}
	if err := snap.Encode(f); err != nil {
		f.Close()
		return "", errors.Wrap(err, "encode snapshot")
	}
	return filename, f.Close()
}

// Load reads a specific save, or the most recent one when filename is empty
func (p Projects) Load(project, filename string) (Snapshot, error) {
	if filename == "" {
		saves, err := p.Saves(project)
		if err != nil {
			return Snapshot{}, err
		}
		if len(saves) == 0 {
			return Snapshot{}, errors.Errorf("no saves found in project %s", project)
		}
		filename = saves[0].Filename
	}

	f, err := os.Open(filepath.Join(p.ProjectDir(project), filename))
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()
	return DecodeSnapshot(f)
}

// DeleteSave deletes a specific save file
func (p Projects) DeleteSave(project, filename string) error {
	return os.Remove(filepath.Join(p.ProjectDir(project), filename))
}

// Delete removes a project and all its saves
func (p Projects) Delete(project string) error {
	if sanitizeFilename(project) == "" {
		return errors.New("empty project name")
	}
	return os.RemoveAll(p.ProjectDir(project))
}

// RenameSave changes the name part of a save, keeping its timestamp.
// An empty name leaves just the timestamp.
func (p Projects) RenameSave(project, filename, name string) (string, error) {
	info, ok := parseSaveName(filename)
	if !ok {
		return "", errors.Errorf("not a save file: %s", filename)
	}
	newName := info.Timestamp.Format(saveTimeFormat)
	if name = sanitizeFilename(name); name != "" {
		newName += "_" + name
	}
	newName += ".json"
	dir := p.ProjectDir(project)
	if err := os.Rename(filepath.Join(dir, filename), filepath.Join(dir, newName)); err != nil {
		return "", err
	}
	return newName, nil
}

// sanitizeFilename removes/replaces characters that are problematic in filenames
func sanitizeFilename(name string) string {
	r := strings.NewReplacer(
		" ", "-", "/", "-", "\\", "-", ":", "-",
		"*", "", "?", "", "\"", "", "<", "", ">", "", "|", "",
	)
	return r.Replace(name)
}
