package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/stagewright/stagewright/internal/app"
	"github.com/stagewright/stagewright/internal/config"
	"github.com/stagewright/stagewright/internal/model"
)

var listFilesCmd = &cobra.Command{
	Use:   "list-files [file-patterns...]",
	Short: "List the test files each project matches, without running them",
	Long: `Collects the files each configured project would test against, applying
testMatch/testIgnore and any file-pattern arguments, and prints the result
as JSON: { "projects": [{ "docker", "name", "testDir", "files" }] }.`,
	RunE: runListFiles,
}

func init() {
	rootCmd.AddCommand(listFilesCmd)
}

type listFilesProject struct {
	Docker  string   `json:"docker"`
	Name    string   `json:"name"`
	TestDir string   `json:"testDir"`
	Files   []string `json:"files"`
}

type listFilesReport struct {
	Projects []listFilesProject `json:"projects"`
}

func runListFiles(cmd *cobra.Command, args []string) error {
	opts, err := config.ToRunOptions(flagValues, args)
	if err != nil {
		return model.NewError("invalid run options", err)
	}

	overrides, err := config.ToOverrides(flagValues, cmd)
	if err != nil {
		return model.NewError("invalid config overrides", err)
	}

	configPath, err := config.ResolveConfigPath(flagValues.Config)
	if err != nil {
		return model.NewError("resolving config path", err)
	}

	projects, err := app.ListFiles(cmd.Context(), app.Request{
		ConfigPath: configPath,
		Options:    opts,
		Overrides:  overrides,
	})
	if err != nil {
		return model.NewError("listing files", err)
	}

	docker := config.DockerInfo()
	report := listFilesReport{Projects: make([]listFilesProject, 0, len(projects))}
	for _, p := range projects {
		files := p.Files
		if files == nil {
			files = []string{}
		}
		report.Projects = append(report.Projects, listFilesProject{
			Docker:  docker,
			Name:    p.Name,
			TestDir: p.TestDir,
			Files:   files,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
