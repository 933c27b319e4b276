// Package files reads meeting documents out of Google Drive. A meeting is
// linked to one Drive folder; the service lists it recursively and exports
// file contents as text for indexing and retrieval.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/fridayhq/friday/models"
)

// Google Workspace MIME types and their text export formats.
const (
	mimeFolder = "application/vnd.google-apps.folder"
	mimeDoc    = "application/vnd.google-apps.document"
	mimeSheet  = "application/vnd.google-apps.spreadsheet"
	mimeSlides = "application/vnd.google-apps.presentation"

	exportText = "text/plain"
	exportCSV  = "text/csv"
)

// maxExportSize caps downloaded content at 5MB per file.
const maxExportSize = 5 * 1024 * 1024

// maxDepth bounds folder recursion.
const maxDepth = 5

var folderIDRe = regexp.MustCompile(`/folders/([a-zA-Z0-9_-]+)`)

// ErrNoFolderID is returned when a link does not contain a Drive folder id.
var ErrNoFolderID = errors.New("no drive folder id in link")

// ExtractFolderID pulls the folder id out of a Drive folder link. A bare id
// is accepted as-is.
func ExtractFolderID(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", ErrNoFolderID
	}
	if m := folderIDRe.FindStringSubmatch(link); m != nil {
		return m[1], nil
	}
	if !strings.Contains(link, "/") && !strings.Contains(link, " ") {
		return link, nil
	}
	return "", ErrNoFolderID
}

// OAuthTokenSource builds a client option from a delegated refresh token,
// for deployments where the extension user grants read access to their Drive.
func OAuthTokenSource(ctx context.Context, clientID, clientSecret, refreshToken string) option.ClientOption {
	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveReadonlyScope},
	}
	return option.WithTokenSource(cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}))
}

// Service lists and downloads files from Drive folders.
type Service struct {
	svc *drive.Service
	log *log.Logger
}

// New builds a Drive service. Supply either an API key (public folders) or a
// credentials JSON path via the options.
func New(ctx context.Context, logger *log.Logger, opts ...option.ClientOption) (*Service, error) {
	if logger == nil {
		logger = log.Default()
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &Service{svc: svc, log: logger}, nil
}

// List returns the non-folder files under folderID, recursing into
// subfolders. nameFilter, when non-empty, keeps only files whose name
// contains it case-insensitively. A 403 from Drive maps to ErrAccessDenied.
func (s *Service) List(ctx context.Context, folderID, nameFilter string) ([]models.FileRef, error) {
	var out []models.FileRef
	filter := strings.ToLower(strings.TrimSpace(nameFilter))
	if err := s.walk(ctx, folderID, filter, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) walk(ctx context.Context, folderID, filter string, depth int, out *[]models.FileRef) error {
	if depth > maxDepth {
		return nil
	}
	query := fmt.Sprintf("'%s' in parents and trashed=false", folderID)
	pageToken := ""
	for {
		call := s.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType, webViewLink, size)").
			PageSize(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return mapDriveErr(err)
		}
		for _, f := range res.Files {
			if f.MimeType == mimeFolder {
				if err := s.walk(ctx, f.Id, filter, depth+1, out); err != nil {
					return err
				}
				continue
			}
			if filter != "" && !strings.Contains(strings.ToLower(f.Name), filter) {
				continue
			}
			*out = append(*out, models.FileRef{
				ID:          f.Id,
				Name:        f.Name,
				MimeType:    f.MimeType,
				WebViewLink: f.WebViewLink,
			})
		}
		if res.NextPageToken == "" {
			return nil
		}
		pageToken = res.NextPageToken
	}
}

// Download returns a file's content as text. Google Workspace files are
// exported (Docs and Slides to plain text, Sheets to CSV); regular files are
// downloaded directly when they are text-like. Content is capped at 5MB.
func (s *Service) Download(ctx context.Context, ref models.FileRef) (string, error) {
	switch ref.MimeType {
	case mimeDoc, mimeSlides:
		return s.export(ctx, ref.ID, exportText)
	case mimeSheet:
		return s.export(ctx, ref.ID, exportCSV)
	}
	if !isTextLike(ref.MimeType) {
		return "", nil
	}
	resp, err := s.svc.Files.Get(ref.ID).Context(ctx).Download()
	if err != nil {
		return "", mapDriveErr(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxExportSize))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", ref.Name, err)
	}
	return string(data), nil
}

// FetchFolder lists a folder and downloads every readable file, returning
// name -> content. Files that fail to download are skipped with a log line so
// one broken file does not sink the whole folder.
func (s *Service) FetchFolder(ctx context.Context, folderID string) (map[string]string, error) {
	refs, err := s.List(ctx, folderID, "")
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(refs))
	for _, ref := range refs {
		content, err := s.Download(ctx, ref)
		if err != nil {
			s.log.Printf("skipping %s: %v", ref.Name, err)
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		out[ref.Name] = content
	}
	return out, nil
}

func (s *Service) export(ctx context.Context, fileID, mime string) (string, error) {
	resp, err := s.svc.Files.Export(fileID, mime).Context(ctx).Download()
	if err != nil {
		return "", mapDriveErr(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxExportSize))
	if err != nil {
		return "", fmt.Errorf("read export: %w", err)
	}
	return string(data), nil
}

func mapDriveErr(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == 403 || gerr.Code == 404) {
		return models.ErrAccessDenied
	}
	return err
}

func isTextLike(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/rtf":
		return true
	}
	return false
}
