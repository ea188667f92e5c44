package forward

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/mailtable/mailtable/internal/links"
	"github.com/mailtable/mailtable/internal/mailhost"
	"github.com/mailtable/mailtable/internal/records"
	"github.com/mailtable/mailtable/internal/refs"
)

// Tables names the backend tables the session works against.
type Tables struct {
	Tasks string
	Docs  string
	Notes string

	Projects      records.OptionTable
	Collaborators records.OptionTable
	People        records.OptionTable
}

// TablesFromEnv reads the table layout from the environment, with the
// standard defaults.
func TablesFromEnv() Tables {
	return Tables{
		Tasks: getEnvOrDefault("MAILTABLE_TASKS_TABLE", "Tasks"),
		Docs:  getEnvOrDefault("MAILTABLE_DOCS_TABLE", "Docs"),
		Notes: getEnvOrDefault("MAILTABLE_NOTES_TABLE", "Notes"),
		Projects: records.OptionTable{
			Table:     getEnvOrDefault("MAILTABLE_PROJECTS_TABLE", "Projects"),
			NameField: getEnvOrDefault("MAILTABLE_NAME_FIELD", "Name"),
		},
		Collaborators: records.OptionTable{
			Table:      getEnvOrDefault("MAILTABLE_COLLABORATORS_TABLE", "Collaborators"),
			NameField:  getEnvOrDefault("MAILTABLE_NAME_FIELD", "Name"),
			EmailField: getEnvOrDefault("MAILTABLE_EMAIL_FIELD", "Email"),
		},
		People: records.OptionTable{
			Table:      getEnvOrDefault("MAILTABLE_PEOPLE_TABLE", "External People"),
			NameField:  getEnvOrDefault("MAILTABLE_NAME_FIELD", "Name"),
			EmailField: getEnvOrDefault("MAILTABLE_EMAIL_FIELD", "Email"),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Deliverer produces {filename, url} pairs for selected attachments.
// delivery.Pipeline satisfies it.
type Deliverer interface {
	Deliver(ctx context.Context, messageID string, attachments []mailhost.AttachmentHandle) []records.Attachment
}

// Session owns the per-process state of the pipeline: the title cache,
// lazily loaded reference options, and the composed backend
// clients. Construct one per process and share it.
type Session struct {
	host      mailhost.Host
	records   *records.Client
	deliverer Deliverer
	titles    *links.TitleResolver
	tables    Tables
	logger    *slog.Logger

	projectsOnce      sync.Once
	collaboratorsOnce sync.Once
	peopleOnce        sync.Once
	projects          []refs.Option
	collaborators     []refs.Option
	people            []refs.Option
}

// NewSession creates a session. The records client may be nil when the
// backend is not configured; forwarding then fails with a clear error
// while the extraction operations keep working.
func NewSession(host mailhost.Host, recordsClient *records.Client, deliverer Deliverer, titles *links.TitleResolver, tables Tables, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		host:      host,
		records:   recordsClient,
		deliverer: deliverer,
		titles:    titles,
		tables:    tables,
		logger:    logger,
	}
}

// Host exposes the mail host for read-only operations.
func (s *Session) Host() mailhost.Host {
	return s.host
}

// Records exposes the backend client; nil when not configured.
func (s *Session) Records() *records.Client {
	return s.records
}

// Titles exposes the session's title resolver.
func (s *Session) Titles() *links.TitleResolver {
	return s.titles
}

// ProjectOptions returns the project reference options, loaded once
// per session. A missing backend configuration yields an empty set.
func (s *Session) ProjectOptions(ctx context.Context) []refs.Option {
	s.projectsOnce.Do(func() {
		s.projects = records.LoadOptions(ctx, s.records, s.tables.Projects, s.logger)
	})
	return s.projects
}

// CollaboratorOptions returns the internal collaborator options,
// loaded once per session.
func (s *Session) CollaboratorOptions(ctx context.Context) []refs.Option {
	s.collaboratorsOnce.Do(func() {
		s.collaborators = records.LoadOptions(ctx, s.records, s.tables.Collaborators, s.logger)
	})
	return s.collaborators
}

// PeopleOptions returns the external person options, loaded once per
// session.
func (s *Session) PeopleOptions(ctx context.Context) []refs.Option {
	s.peopleOnce.Do(func() {
		s.people = records.LoadOptions(ctx, s.records, s.tables.People, s.logger)
	})
	return s.people
}
