package storage

import (
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

// URIScheme is the scheme of artifact resource URIs
const URIScheme = "esa"

// ArtifactURITemplate is the resource template matching every artifact URI
const ArtifactURITemplate = URIScheme + "://{jobId}/{artifact}"

// ArtifactURI returns the retrieval handle of a job artifact
func ArtifactURI(jobID, name string) string {
	return fmt.Sprintf("%s://%s/%s", URIScheme, jobID, name)
}

// ParseArtifactURI splits an artifact URI into its job ID and artifact name
func ParseArtifactURI(uri string) (jobID, name string, err error) {
	rest, ok := strings.CutPrefix(uri, URIScheme+"://")
	if !ok {
		return "", "", fmt.Errorf("invalid artifact URI scheme: %s", uri)
	}
	jobID, name, ok = strings.Cut(rest, "/")
	if !ok || jobID == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid artifact URI: %s", uri)
	}
	return jobID, name, nil
}

// CalculateResourcePaths generates the resource URIs for the given artifacts of a job
func CalculateResourcePaths(jobID string, artifacts []models.ArtifactInfo) []string {
	resourcePaths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		resourcePaths = append(resourcePaths, ArtifactURI(jobID, a.Name))
	}
	return resourcePaths
}

// ArtifactFilename returns the file name an artifact is written to on disk
func ArtifactFilename(name string) string {
	return name + ".pdf"
}
