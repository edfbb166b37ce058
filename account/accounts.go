package account

import (
	"approvalflow/authority"
	"approvalflow/idgen"
	"crypto/sha256"
	"encoding/hex"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	userIdWorker = idgen.NewWorker()

	LoadCapabilitiesFunc = LoadCapabilities
)

func HashSha256(raw string) string {
	h := sha256.New()
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}

func CreateUser(db *gorm.DB, c *UserCreation) (*User, error) {
	user := User{ID: idgen.NextID(userIdWorker), Name: c.Name, Nickname: c.Nickname, Secret: HashSha256(c.Secret)}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func FindUserByCredential(db *gorm.DB, name, password string) (*User, error) {
	user := User{}
	if err := db.Where(&User{Name: name, Secret: HashSha256(password)}).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// QueryUsers loads the users with the given ids ordered by id. Unknown ids are ignored.
func QueryUsers(db *gorm.DB, ids []types.ID) ([]User, error) {
	users := []User{}
	if len(ids) == 0 {
		return users, nil
	}
	if err := db.Where("id IN (?)", ids).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func CreateJobAssignment(db *gorm.DB, userID types.ID, name string, managerID types.ID) (*JobAssignment, error) {
	ja := JobAssignment{ID: idgen.NextID(userIdWorker), UserID: userID, Name: name, ManagerID: managerID}
	if err := db.Create(&ja).Error; err != nil {
		return nil, err
	}
	return &ja, nil
}

func FindJobAssignment(db *gorm.DB, id types.ID) (*JobAssignment, error) {
	ja := JobAssignment{}
	if err := db.Where(&JobAssignment{ID: id}).First(&ja).Error; err != nil {
		return nil, err
	}
	return &ja, nil
}

func JobAssignmentsOf(db *gorm.DB, userID types.ID) ([]JobAssignment, error) {
	jas := []JobAssignment{}
	if err := db.Where(&JobAssignment{UserID: userID}).Order("id ASC").Find(&jas).Error; err != nil {
		return nil, err
	}
	return jas, nil
}

func GrantCapability(db *gorm.DB, userID types.ID, capability, scope string) error {
	grant := UserCapability{ID: idgen.NextID(userIdWorker), UserID: userID, Capability: capability, Scope: scope}
	return db.Create(&grant).Error
}

func RevokeCapability(db *gorm.DB, userID types.ID, capability, scope string) error {
	return db.Where("user_id = ? AND capability = ? AND scope = ?", userID, capability, scope).Delete(&UserCapability{}).Error
}

// LoadCapabilities returns the user's grants as scoped permissions. Global roles are stored with an empty scope.
func LoadCapabilities(db *gorm.DB, userID types.ID) (authority.Permissions, error) {
	var grants []UserCapability
	if err := db.Where(&UserCapability{UserID: userID}).Order("id ASC").Find(&grants).Error; err != nil {
		return nil, err
	}
	perms := authority.Permissions{}
	for _, g := range grants {
		if g.Scope == "" {
			perms = append(perms, g.Capability)
		} else {
			perms = append(perms, authority.Scoped(g.Capability, g.Scope))
		}
	}
	return perms, nil
}
