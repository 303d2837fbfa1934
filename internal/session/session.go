package session

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/teralaunch/teralaunch/internal/validate"
)

// Data is the durable slice of session state that survives launcher
// restarts: auth material mirrored to the backend, privilege levels used
// for gating, and the first-launch flag.
type Data struct {
	AuthKey        string `json:"auth_key,omitempty"`
	UserName       string `json:"user_name,omitempty"`
	UserNo         int    `json:"user_no,omitempty"`
	CharacterCount string `json:"character_count,omitempty"`
	Permission     int    `json:"permission,omitempty" validate:"gte=0"`
	Privilege      int    `json:"privilege,omitempty" validate:"gte=0"`
	IsFirstLaunch  bool   `json:"is_first_launch"`

	// InstallUUID identifies this launcher install across sessions.
	InstallUUID string `json:"install_uuid,omitempty" validate:"omitempty,uuid_rfc4122"`
}

// Store handles loading and saving of the session file.
type Store struct {
	Path string `validate:"required,filepath"`
	Data Data
}

// NewStore loads the session file at path, creating default state when the
// file does not exist yet. Invalid persisted values are healed rather than
// rejected so a corrupt session file never blocks startup.
func NewStore(path string) (*Store, error) {
	s := &Store{
		Path: path,
		Data: Data{IsFirstLaunch: true},
	}

	if err := s.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if s.Data.InstallUUID == "" {
		s.Data.InstallUUID = uuid.NewString()
	}
	return s, nil
}

// Load reads and validates the session file, self-healing invalid fields.
func (s *Store) Load() error {
	logrus.Debug("loading session file from: ", s.Path)
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &s.Data); err != nil {
		return err
	}

	if err := validate.Struct(s.Data); err != nil {
		changed := false
		if s.Data.InstallUUID != "" && validate.Var(s.Data.InstallUUID, "uuid_rfc4122") != nil {
			logrus.Warn("invalid install_uuid in session file; regenerating")
			s.Data.InstallUUID = uuid.NewString()
			changed = true
		}
		// A negative privilege or permission is "not permitted", never an error.
		if s.Data.Privilege < 0 {
			s.Data.Privilege = 0
			changed = true
		}
		if s.Data.Permission < 0 {
			s.Data.Permission = 0
			changed = true
		}
		if changed {
			if err := s.Save(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Save writes the session data to disk.
func (s *Store) Save() error {
	logrus.Debug("saving session file to: ", s.Path)
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.Data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0o600)
}

// IsAuthenticated reports whether a login has been persisted.
func (s *Store) IsAuthenticated() bool {
	return s.Data.AuthKey != "" && s.Data.UserName != ""
}

// SetLogin persists the fields of a successful login.
func (s *Store) SetLogin(authKey, userName string, userNo int, characterCount string, permission, privilege int) error {
	s.Data.AuthKey = authKey
	s.Data.UserName = userName
	s.Data.UserNo = userNo
	s.Data.CharacterCount = characterCount
	s.Data.Permission = permission
	s.Data.Privilege = privilege
	return s.Save()
}

// ClearLogin wipes auth material at logout, keeping install identity and
// the first-launch flag.
func (s *Store) ClearLogin() error {
	s.Data.AuthKey = ""
	s.Data.UserName = ""
	s.Data.UserNo = 0
	s.Data.CharacterCount = ""
	s.Data.Permission = 0
	s.Data.Privilege = 0
	return s.Save()
}

// CompleteFirstLaunch clears the first-launch flag once a game path has
// been configured.
func (s *Store) CompleteFirstLaunch() error {
	s.Data.IsFirstLaunch = false
	return s.Save()
}
