package render

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/pkgmirror/conda-mirror/internal/azure"
	"github.com/pkgmirror/conda-mirror/internal/github"
	"github.com/pkgmirror/conda-mirror/internal/models"
)

// Format selects the output encoding for the info command.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
	FormatTable
)

// ParseFormat parses an --encode flag value.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "yaml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	default:
		return 0, &models.MirrorError{
			Type: models.ErrInvalidInput,
			Err:  fmt.Errorf("unknown output format %q, expected yaml, json or table", s),
		}
	}
}

var headerStyle = lipgloss.NewStyle().Bold(true)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)
}

// asYAML re-encodes a value through JSON so that the YAML output uses
// the same field names as the upstream APIs.
func asYAML(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func asJSON(v any) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// GitHubArtifacts renders a GitHub artifact listing.
func GitHubArtifacts(artifacts []github.Artifact, format Format) (string, error) {
	switch format {
	case FormatYAML:
		return asYAML(artifacts)
	case FormatJSON:
		return asJSON(artifacts)
	default:
		t := newTable("ID", "NAME", "SIZE", "EXPIRED", "CREATED")
		for _, a := range artifacts {
			t.Row(
				strconv.FormatUint(a.ID, 10),
				a.Name,
				humanize.Bytes(a.SizeInBytes),
				strconv.FormatBool(a.Expired),
				a.CreatedAt,
			)
		}
		return t.String(), nil
	}
}

// AzureBuilds renders an Azure DevOps build listing.
func AzureBuilds(builds []azure.Build, format Format) (string, error) {
	switch format {
	case FormatYAML:
		return asYAML(builds)
	case FormatJSON:
		return asJSON(builds)
	default:
		t := newTable("ID", "NUMBER", "PIPELINE", "STATUS", "RESULT", "FINISHED")
		for _, b := range builds {
			t.Row(
				strconv.FormatUint(b.ID, 10),
				b.BuildNumber,
				b.Definition.Name,
				b.Status,
				b.Result,
				b.FinishTime,
			)
		}
		return t.String(), nil
	}
}

// AzureArtifacts renders an Azure DevOps artifact listing.
func AzureArtifacts(artifacts []azure.Artifact, format Format) (string, error) {
	switch format {
	case FormatYAML:
		return asYAML(artifacts)
	case FormatJSON:
		return asJSON(artifacts)
	default:
		t := newTable("ID", "NAME", "TYPE", "SIZE", "DOWNLOADABLE")
		for _, a := range artifacts {
			t.Row(
				strconv.FormatUint(a.ID, 10),
				a.Name,
				a.Resource.Type,
				artifactSize(a),
				strconv.FormatBool(azure.Downloadable(a)),
			)
		}
		return t.String(), nil
	}
}

func artifactSize(a azure.Artifact) string {
	if a.Resource.Properties == nil || a.Resource.Properties.ArtifactSize == "" {
		return "-"
	}
	size, err := strconv.ParseUint(a.Resource.Properties.ArtifactSize, 10, 64)
	if err != nil {
		return a.Resource.Properties.ArtifactSize
	}
	return humanize.Bytes(size)
}
