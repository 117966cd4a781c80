package reconcile_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/voshond/mwsync/internal/filesys"
	"github.com/voshond/mwsync/internal/mocks"
	"github.com/voshond/mwsync/internal/reconcile"
)

const baseData = "/mnt/data02/SteamLibrary/steamapps/common/Morrowind/Data Files"

type ReconcileTestSuite struct {
	suite.Suite
	dir   string
	rules reconcile.Ruleset
}

func (s *ReconcileTestSuite) SetupTest() {
	s.dir = s.T().TempDir()

	rule, err := reconcile.NewRule(`ModOrganizer/Morrowind/mods/([^"]+)`, "/home/martin/Documents/Morrowind/mods/{name}")
	s.Require().NoError(err)

	s.rules = reconcile.Ruleset{
		Rules: []reconcile.Rule{rule},
		Skip: []string{
			"steamapps/common/Morrowind/Data Files",
			"ModOrganizer/Morrowind/overwrite",
		},
	}
}

func (s *ReconcileTestSuite) write(name, content string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (s *ReconcileTestSuite) read(path string) string {
	raw, err := os.ReadFile(path)
	s.Require().NoError(err)
	return string(raw)
}

func (s *ReconcileTestSuite) input(source, target string) reconcile.Input {
	return reconcile.Input{
		SourcePath: source,
		TargetPath: target,
		BaseData:   baseData,
		Rules:      s.rules,
	}
}

func (s *ReconcileTestSuite) TestMerge() {
	source := s.write("source.cfg", `no-sound=0
data="C:/Games/steamapps/common/Morrowind/Data Files"
data="C:/Games/ModOrganizer/Morrowind/mods/Graphics Overhaul"
content=Morrowind.esm
content=GraphicsOverhaul.esp
`)
	target := s.write("target.cfg", `fallback-archive=Morrowind.bsa
fallback-archive=Tribunal.bsa
data="/old/path"
content=OldMod.esp
`)

	report, err := reconcile.Reconcile(s.input(source, target))
	s.Require().NoError(err)

	want := `fallback-archive=Morrowind.bsa
fallback-archive=Tribunal.bsa
data="` + baseData + `"
data="/home/martin/Documents/Morrowind/mods/Graphics Overhaul"
content=Morrowind.esm
content=GraphicsOverhaul.esp
`
	s.Equal(want, s.read(target))

	s.Equal(2, report.SearchPaths)
	s.Equal(2, report.ContentEntries)
	s.Equal(2, report.CarryOver)
	s.Len(report.Dropped, 1) // the source's own game-data root
	s.Equal(reconcile.DropExcluded, report.Dropped[0].Reason)
	s.NotEmpty(report.RunID)
}

func (s *ReconcileTestSuite) TestBackupFidelity() {
	source := s.write("source.cfg", "content=A.esp\n")
	targetContent := "# my config\ndata=\"/old\"\ncontent=Old.esp\n"
	target := s.write("target.cfg", targetContent)

	report, err := reconcile.Reconcile(s.input(source, target))
	s.Require().NoError(err)

	s.Equal(target+reconcile.BackupSuffix, report.BackupPath)
	s.Equal(targetContent, s.read(report.BackupPath))
	s.NotEqual(targetContent, s.read(target))
}

func (s *ReconcileTestSuite) TestBaseRootIdempotent() {
	source := s.write("source.cfg", `data="C:/Games/ModOrganizer/Morrowind/mods/SomeMod"
content=SomeMod.esp
`)
	target := s.write("target.cfg", "fallback-archive=Tribunal.bsa\n")

	_, err := reconcile.Reconcile(s.input(source, target))
	s.Require().NoError(err)
	first := s.read(target)

	// Second run consumes the just-produced target.
	_, err = reconcile.Reconcile(s.input(source, target))
	s.Require().NoError(err)

	s.Equal(first, s.read(target))
	s.Equal(1, strings.Count(s.read(target), `data="`+baseData+`"`))
}

func (s *ReconcileTestSuite) TestCarryOverCompleteness() {
	source := s.write("source.cfg", "content=A.esp\n")
	target := s.write("target.cfg", `# comment up top
fallback-archive=Morrowind.bsa
data="/dropped"

  indented opaque line
content=Dropped.esp
fallback=FontColor_color_normal,202,165,96
`)

	_, err := reconcile.Reconcile(s.input(source, target))
	s.Require().NoError(err)

	merged := s.read(target)
	opaque := []string{
		"# comment up top",
		"fallback-archive=Morrowind.bsa",
		"",
		"  indented opaque line",
		"fallback=FontColor_color_normal,202,165,96",
	}
	idx := -1
	for _, line := range opaque {
		next := indexOfLine(merged, line)
		s.Require().GreaterOrEqual(next, 0, "missing opaque line %q", line)
		s.Greater(next, idx, "opaque line %q out of order", line)
		idx = next
	}
	s.NotContains(merged, "Dropped.esp")
	s.NotContains(merged, `data="/dropped"`)
}

func (s *ReconcileTestSuite) TestContentFullyReplaced() {
	source := s.write("source.cfg", `content=One.esm
content=Two.esp
`)
	target := s.write("target.cfg", `content=OldA.esp
content=OldB.esp
content=OldC.esp
`)

	report, err := reconcile.Reconcile(s.input(source, target))
	s.Require().NoError(err)

	merged := s.read(target)
	s.Equal(2, report.ContentEntries)
	s.Equal(2, strings.Count(merged, "content="))
	s.Less(indexOfLine(merged, "content=One.esm"), indexOfLine(merged, "content=Two.esp"))
}

func (s *ReconcileTestSuite) TestDroppedPathsReported() {
	source := s.write("source.cfg", `data="C:/Games/steamapps/common/Morrowind/Data Files"
data="C:/Games/ModOrganizer/Morrowind/overwrite"
data="D:/SomewhereElse/UnknownLayout"
data="C:/Games/ModOrganizer/Morrowind/mods/Known Mod"
`)
	target := s.write("target.cfg", "\n")

	report, err := reconcile.Reconcile(s.input(source, target))
	s.Require().NoError(err)

	s.Require().Len(report.Dropped, 3)
	s.Equal(reconcile.DropExcluded, report.Dropped[0].Reason)
	s.Equal(reconcile.DropExcluded, report.Dropped[1].Reason)
	s.Equal(reconcile.DropUnmatched, report.Dropped[2].Reason)
	s.Contains(report.Dropped[2].Line, "UnknownLayout")

	merged := s.read(target)
	s.NotContains(merged, "UnknownLayout")
	s.Contains(merged, `data="/home/martin/Documents/Morrowind/mods/Known Mod"`)
}

func (s *ReconcileTestSuite) TestCRLFSource() {
	source := s.write("source.cfg", "data=\"C:/Games/ModOrganizer/Morrowind/mods/WinMod\"\r\ncontent=WinMod.esp\r\n")
	target := s.write("target.cfg", "fallback-archive=Morrowind.bsa\n")

	_, err := reconcile.Reconcile(s.input(source, target))
	s.Require().NoError(err)

	merged := s.read(target)
	s.Contains(merged, `data="/home/martin/Documents/Morrowind/mods/WinMod"`)
	s.Contains(merged, "content=WinMod.esp\n")
	s.NotContains(merged, "\r")
}

func (s *ReconcileTestSuite) TestMissingSource() {
	target := s.write("target.cfg", "content=Old.esp\n")

	_, err := reconcile.Reconcile(s.input(filepath.Join(s.dir, "absent.cfg"), target))
	s.Require().ErrorIs(err, reconcile.ErrMissingInput)
	s.Contains(err.Error(), "absent.cfg")

	// No side effects: target untouched, no backup written.
	s.Equal("content=Old.esp\n", s.read(target))
	s.NoFileExists(target + reconcile.BackupSuffix)
}

func (s *ReconcileTestSuite) TestMissingTarget() {
	source := s.write("source.cfg", "content=A.esp\n")

	_, err := reconcile.Reconcile(s.input(source, filepath.Join(s.dir, "absent.cfg")))
	s.Require().ErrorIs(err, reconcile.ErrMissingInput)
	s.Contains(err.Error(), "absent.cfg")
}

func (s *ReconcileTestSuite) TestEncodingError() {
	source := s.write("source.cfg", "content=A.esp\n")
	target := filepath.Join(s.dir, "target.cfg")
	s.Require().NoError(os.WriteFile(target, []byte{'x', '=', 0xff, 0xfe, '\n'}, 0o644))

	_, err := reconcile.Reconcile(s.input(source, target))
	s.Require().ErrorIs(err, reconcile.ErrEncoding)
	s.NoFileExists(target + reconcile.BackupSuffix)
}

func (s *ReconcileTestSuite) TestBackupFailure() {
	fsm := new(mocks.MockOsFS)
	fsm.On("ReadFile", "source.cfg").Return([]byte("content=A.esp\n"), nil)
	fsm.On("ReadFile", "target.cfg").Return([]byte("x=1\n"), nil)
	fsm.On("Stat", "target.cfg").Return(nil, errors.New("stat unavailable"))
	fsm.On("WriteFile", "target.cfg"+reconcile.BackupSuffix, mock.Anything, mock.Anything).
		Return(errors.New("disk full"))

	in := s.input("source.cfg", "target.cfg")
	in.FS = fsm

	_, err := reconcile.Reconcile(in)
	s.Require().ErrorIs(err, reconcile.ErrBackup)

	// Nothing destructive after a failed backup.
	fsm.AssertNotCalled(s.T(), "CreateTemp", mock.Anything, mock.Anything)
	fsm.AssertNotCalled(s.T(), "Rename", mock.Anything, mock.Anything)
}

// renameFailFS simulates a commit interrupted at the rename step.
type renameFailFS struct {
	filesys.OsFS
}

func (renameFailFS) Rename(string, string) error {
	return errors.New("rename interrupted")
}

func (s *ReconcileTestSuite) TestCommitFailureLeavesTargetIntact() {
	source := s.write("source.cfg", "content=A.esp\n")
	targetContent := "fallback-archive=Morrowind.bsa\ncontent=Old.esp\n"
	target := s.write("target.cfg", targetContent)

	in := s.input(source, target)
	in.FS = renameFailFS{}

	_, err := reconcile.Reconcile(in)
	s.Require().ErrorIs(err, reconcile.ErrWrite)

	// The failed commit must not leave a truncated mixture.
	s.Equal(targetContent, s.read(target))
	s.Equal(targetContent, s.read(target+reconcile.BackupSuffix))
}

func (s *ReconcileTestSuite) TestCustomDirectiveKeys() {
	source := s.write("source.cfg", `path="C:/Games/ModOrganizer/Morrowind/mods/Alt"
plugin=Alt.esp
`)
	target := s.write("target.cfg", "data=\"/kept-now-opaque\"\n")

	in := s.input(source, target)
	in.SearchPathKey = "path"
	in.ContentKey = "plugin"

	report, err := reconcile.Reconcile(in)
	s.Require().NoError(err)

	merged := s.read(target)
	// With custom keys, data= lines in the target are opaque carry-over.
	s.Contains(merged, `data="/kept-now-opaque"`)
	s.Contains(merged, `path="`+baseData+`"`)
	s.Contains(merged, `path="/home/martin/Documents/Morrowind/mods/Alt"`)
	s.Contains(merged, "plugin=Alt.esp")
	s.Equal(1, report.ContentEntries)
}

// indexOfLine returns the position of line as a whole line within doc, or -1.
func indexOfLine(doc, line string) int {
	for i, l := range strings.Split(doc, "\n") {
		if l == line {
			return i
		}
	}
	return -1
}

func TestReconcileSuite(t *testing.T) {
	suite.Run(t, new(ReconcileTestSuite))
}
