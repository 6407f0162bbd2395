package commands

import (
	"context"
	"encoding/json"

	"github.com/noiddea/dash/auth"
	"github.com/noiddea/dash/process"
	"github.com/noiddea/dash/sqlproxy/host"
	"github.com/noiddea/dash/sqlproxy/types"
	"github.com/noiddea/dash/sqlproxy/value"
	"github.com/noiddea/dash/window"
)

// DatabaseFile reports where the database lives. *database.Manager
// implements it.
type DatabaseFile interface {
	Path() (string, error)
	Exists() (bool, error)
}

// PathResolver resolves platform directories by symbolic name.
// *paths.Resolver implements it.
type PathResolver interface {
	Resolve(name string) (string, error)
}

type Restarter interface {
	Restart() error
}

type ScriptRunner interface {
	Run(ctx context.Context) (string, error)
}

// Deps are the collaborators behind the command surface. They are built once
// at startup and shared by every invocation.
type Deps struct {
	DB      DatabaseFile
	SQL     *host.SQLHost
	Hasher  *auth.Hasher
	Tokens  *auth.TokenIssuer
	Paths   PathResolver
	Window  window.Window
	Restart Restarter
	Reset   ScriptRunner
	Version string
}

type HashResult struct {
	Hash string `json:"hash"`
}

type VerifyResult struct {
	IsValid bool `json:"isValid"`
}

type TokenResult struct {
	Token string `json:"token"`
}

// New returns a Registry with every command registered against d.
func New(d Deps) *Registry {
	r := NewRegistry()

	// Database
	r.Register("db_get_path", d.dbGetPath)
	r.Register("db_exists", d.dbExists)
	r.Register("db_query", d.dbQuery)
	r.Register("db_execute", d.dbExecute)
	r.Register("db_exec", d.dbExec)
	r.Register("db_transaction", d.dbTransaction)

	// Auth
	r.Register("auth_hash_password", d.authHashPassword)
	r.Register("auth_verify_password", d.authVerifyPassword)
	r.Register("auth_generate_token", d.authGenerateToken)

	// App
	r.Register("app_get_version", d.appGetVersion)
	r.Register("app_get_path", d.appGetPath)
	r.Register("app_restart", d.appRestart)
	r.Register("platform_get", platformGet)

	// Window
	r.Register("window_minimize", func(context.Context, json.RawMessage) (any, error) {
		return nil, d.Window.Minimize()
	})
	r.Register("window_maximize", func(context.Context, json.RawMessage) (any, error) {
		return nil, d.Window.Maximize()
	})
	r.Register("window_close", func(context.Context, json.RawMessage) (any, error) {
		return nil, d.Window.Close()
	})
	r.Register("window_is_maximized", func(context.Context, json.RawMessage) (any, error) {
		return d.Window.IsMaximized()
	})

	// Scripts
	r.Register("script_reset_database", d.scriptResetDatabase)

	return r
}

func (d Deps) dbGetPath(context.Context, json.RawMessage) (any, error) {
	return d.DB.Path()
}

func (d Deps) dbExists(context.Context, json.RawMessage) (any, error) {
	return d.DB.Exists()
}

type statementArgs struct {
	SQL    *string       `json:"sql"`
	Params []value.Value `json:"params"`
}

func (a *statementArgs) decode(args json.RawMessage) error {
	if err := decodeArgs(args, a); err != nil {
		return err
	}
	if a.SQL == nil {
		return missingArg("sql")
	}
	if a.Params == nil {
		a.Params = []value.Value{}
	}
	return nil
}

func (d Deps) dbQuery(ctx context.Context, args json.RawMessage) (any, error) {
	var a statementArgs
	if err := a.decode(args); err != nil {
		return nil, err
	}
	return d.SQL.Query(ctx, *a.SQL, a.Params), nil
}

func (d Deps) dbExecute(ctx context.Context, args json.RawMessage) (any, error) {
	var a statementArgs
	if err := a.decode(args); err != nil {
		return nil, err
	}
	return d.SQL.Execute(ctx, *a.SQL, a.Params), nil
}

func (d Deps) dbExec(ctx context.Context, args json.RawMessage) (any, error) {
	var a statementArgs
	if err := a.decode(args); err != nil {
		return nil, err
	}
	return d.SQL.Exec(ctx, *a.SQL), nil
}

// dbTransaction decodes each member separately so that a malformed member
// fails the batch with an envelope instead of an argument error.
func (d Deps) dbTransaction(ctx context.Context, args json.RawMessage) (any, error) {
	var a struct {
		Queries *[]json.RawMessage `json:"queries"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Queries == nil {
		return nil, missingArg("queries")
	}

	statements := make([]types.QueryRequest, len(*a.Queries))
	for i, raw := range *a.Queries {
		if err := json.Unmarshal(raw, &statements[i]); err != nil {
			return types.Failure[[]value.Value](err), nil
		}
	}
	return d.SQL.Transaction(ctx, statements), nil
}

func (d Deps) authHashPassword(_ context.Context, args json.RawMessage) (any, error) {
	var a struct {
		Password *string `json:"password"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Password == nil {
		return nil, missingArg("password")
	}

	hash, err := d.Hasher.HashPassword(*a.Password)
	if err != nil {
		return types.Failure[HashResult](err), nil
	}
	return types.Success(HashResult{Hash: hash}), nil
}

func (d Deps) authVerifyPassword(_ context.Context, args json.RawMessage) (any, error) {
	var a struct {
		Password *string `json:"password"`
		Hash     *string `json:"hash"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Password == nil {
		return nil, missingArg("password")
	}
	if a.Hash == nil {
		return nil, missingArg("hash")
	}

	ok, err := d.Hasher.VerifyPassword(*a.Password, *a.Hash)
	if err != nil {
		return types.Failure[VerifyResult](err), nil
	}
	return types.Success(VerifyResult{IsValid: ok}), nil
}

func (d Deps) authGenerateToken(_ context.Context, args json.RawMessage) (any, error) {
	var a struct {
		UserID *string `json:"userId"`
		Email  *string `json:"email"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.UserID == nil {
		return nil, missingArg("userId")
	}
	if a.Email == nil {
		return nil, missingArg("email")
	}

	token, err := d.Tokens.GenerateToken(*a.UserID, *a.Email)
	if err != nil {
		return types.Failure[TokenResult](err), nil
	}
	return types.Success(TokenResult{Token: token}), nil
}

func (d Deps) appGetVersion(context.Context, json.RawMessage) (any, error) {
	if d.Version != "" {
		return d.Version, nil
	}
	return process.Version, nil
}

func (d Deps) appGetPath(_ context.Context, args json.RawMessage) (any, error) {
	var a struct {
		Name *string `json:"name"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Name == nil {
		return nil, missingArg("name")
	}
	return d.Paths.Resolve(*a.Name)
}

func (d Deps) appRestart(context.Context, json.RawMessage) (any, error) {
	if err := d.Restart.Restart(); err != nil {
		return nil, err
	}
	return nil, nil
}

func platformGet(context.Context, json.RawMessage) (any, error) {
	return process.Platform(), nil
}

func (d Deps) scriptResetDatabase(ctx context.Context, _ json.RawMessage) (any, error) {
	return d.Reset.Run(ctx)
}
