package mcpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/photo-tagger/internal/core/ports"
	"github.com/kirillkom/photo-tagger/internal/infrastructure/imageprep"
)

const toolTagPhoto = "tag_photo"

// Server exposes the tagging workflow as MCP tools.
type Server struct {
	tagger ports.PhotoTagger
	prep   imageprep.Options
}

func NewServer(tagger ports.PhotoTagger, prep imageprep.Options) *Server {
	return &Server{tagger: tagger, prep: prep}
}

func (s *Server) MCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer("photo-tagger", version, server.WithToolCapabilities(false))
	srv.AddTool(
		mcp.NewTool(toolTagPhoto,
			mcp.WithDescription("Upload a local image to the tagging service and return the tags it detects."),
			mcp.WithString("path",
				mcp.Required(),
				mcp.Description("Path to a JPEG, PNG, GIF, BMP or TIFF image on the local filesystem."),
			),
		),
		s.handleTagPhoto,
	)
	return srv
}

func (s *Server) handleTagPhoto(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open image: %v", err)), nil
	}
	defer file.Close()

	photo, err := imageprep.Prepare(file, s.prep)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := s.tagger.TagPhoto(ctx, photo, nil)
	if result.Failed() {
		slog.Warn("mcp_tag_photo_failed", "run_id", result.RunID, "path", path, "error", result.Reason)
		return mcp.NewToolResultError(fmt.Sprintf("tagging failed during %s: %v", result.FailedStage, result.Reason)), nil
	}
	if len(result.Tags) == 0 {
		return mcp.NewToolResultText("no tags found"), nil
	}
	return mcp.NewToolResultText(strings.Join(result.Tags, ", ")), nil
}
