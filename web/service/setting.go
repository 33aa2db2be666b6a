package service

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/Retroinn/MotoCrew/database"
	"github.com/Retroinn/MotoCrew/database/model"
	"github.com/Retroinn/MotoCrew/util/common"
	"github.com/Retroinn/MotoCrew/util/random"
	"github.com/Retroinn/MotoCrew/web/entity"
)

var defaultValueMap = map[string]string{
	"webListen":     "",
	"webDomain":     "",
	"webPort":       "8080",
	"webBasePath":   "/",
	"secret":        random.Seq(32),
	"sessionMaxAge": "60",
	"timeLocation":  "Europe/Istanbul",
	"tgBotEnable":   "false",
	"tgBotToken":    "",
	"tgBotChatId":   "",
	"tgRunTime":     "@daily",
	"tgLang":        "en-US",
	"aiEnable":      "true",
}

// SettingService reads and writes panel settings. Unset keys fall back to
// defaultValueMap, so a fresh database boots with a working configuration.
type SettingService struct{}

func (s *SettingService) GetAllSetting() (*entity.AllSetting, error) {
	db := database.GetDB()
	settings := make([]*model.Setting, 0)
	if err := db.Model(model.Setting{}).Find(&settings).Error; err != nil {
		return nil, err
	}
	allSetting := &entity.AllSetting{}
	t := reflect.TypeOf(allSetting).Elem()
	v := reflect.ValueOf(allSetting).Elem()

	setSetting := func(key, value string) (err error) {
		defer func() {
			if panicErr := recover(); panicErr != nil {
				err = errors.New(fmt.Sprint(panicErr))
			}
		}()

		var found bool
		var field reflect.StructField
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).Tag.Get("json") == key {
				field = t.Field(i)
				found = true
				break
			}
		}
		if !found {
			// Internal keys such as the session secret never leave the server.
			return nil
		}

		fieldV := v.FieldByName(field.Name)
		switch ft := fieldV.Interface().(type) {
		case int:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			fieldV.SetInt(n)
		case string:
			fieldV.SetString(value)
		case bool:
			fieldV.SetBool(value == "true")
		default:
			return common.NewErrorf("unknown field %v type %v", key, ft)
		}
		return
	}

	keyMap := map[string]bool{}
	for _, setting := range settings {
		if err := setSetting(setting.Key, setting.Value); err != nil {
			return nil, err
		}
		keyMap[setting.Key] = true
	}
	for key, value := range defaultValueMap {
		if keyMap[key] {
			continue
		}
		if err := setSetting(key, value); err != nil {
			return nil, err
		}
	}
	return allSetting, nil
}

func (s *SettingService) UpdateAllSetting(allSetting *entity.AllSetting) error {
	if err := allSetting.CheckValid(); err != nil {
		return err
	}
	t := reflect.TypeOf(allSetting).Elem()
	v := reflect.ValueOf(allSetting).Elem()
	var errs []error
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("json")
		fieldV := v.Field(i)
		var value string
		switch ft := fieldV.Interface().(type) {
		case int:
			value = strconv.FormatInt(fieldV.Int(), 10)
		case string:
			value = fieldV.String()
		case bool:
			value = strconv.FormatBool(fieldV.Bool())
		default:
			return common.NewErrorf("unknown field %v type %v", key, ft)
		}
		errs = append(errs, s.saveSetting(key, value))
	}
	return common.Combine(errs...)
}

func (s *SettingService) ResetSettings() error {
	return database.GetDB().Where("1 = 1").Delete(model.Setting{}).Error
}

func (s *SettingService) getSetting(key string) (*model.Setting, error) {
	db := database.GetDB()
	setting := &model.Setting{}
	err := db.Model(model.Setting{}).Where("key = ?", key).First(setting).Error
	if err != nil {
		return nil, err
	}
	return setting, nil
}

func (s *SettingService) saveSetting(key string, value string) error {
	setting, err := s.getSetting(key)
	db := database.GetDB()
	if database.IsNotFound(err) {
		return db.Create(&model.Setting{
			Key:   key,
			Value: value,
		}).Error
	} else if err != nil {
		return err
	}
	setting.Key = key
	setting.Value = value
	return db.Save(setting).Error
}

func (s *SettingService) getString(key string) (string, error) {
	setting, err := s.getSetting(key)
	if database.IsNotFound(err) {
		value, ok := defaultValueMap[key]
		if !ok {
			return "", common.NewErrorf("key <%v> not in defaultValueMap", key)
		}
		return value, nil
	} else if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (s *SettingService) setString(key string, value string) error {
	return s.saveSetting(key, value)
}

func (s *SettingService) getBool(key string) (bool, error) {
	str, err := s.getString(key)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(str)
}

func (s *SettingService) setBool(key string, value bool) error {
	return s.setString(key, strconv.FormatBool(value))
}

func (s *SettingService) getInt(key string) (int, error) {
	str, err := s.getString(key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(str)
}

func (s *SettingService) GetListen() (string, error) {
	return s.getString("webListen")
}

func (s *SettingService) GetWebDomain() (string, error) {
	return s.getString("webDomain")
}

func (s *SettingService) GetPort() (int, error) {
	return s.getInt("webPort")
}

func (s *SettingService) GetBasePath() (string, error) {
	basePath, err := s.getString("webBasePath")
	if err != nil {
		return "", err
	}
	if basePath == "" {
		basePath = "/"
	}
	if basePath[len(basePath)-1] != '/' {
		basePath += "/"
	}
	return basePath, nil
}

func (s *SettingService) GetSecret() ([]byte, error) {
	secret, err := s.getString("secret")
	if err != nil {
		return nil, err
	}
	// Persist the generated secret so sessions survive a restart.
	if _, getErr := s.getSetting("secret"); database.IsNotFound(getErr) {
		if saveErr := s.saveSetting("secret", secret); saveErr != nil {
			return nil, saveErr
		}
	}
	return []byte(secret), nil
}

func (s *SettingService) GetSessionMaxAge() (int, error) {
	return s.getInt("sessionMaxAge")
}

func (s *SettingService) GetTimeLocation() (*time.Location, error) {
	l, err := s.getString("timeLocation")
	if err != nil {
		return nil, err
	}
	location, err := time.LoadLocation(l)
	if err != nil {
		defaultLocation := defaultValueMap["timeLocation"]
		location, _ = time.LoadLocation(defaultLocation)
	}
	return location, nil
}

func (s *SettingService) GetTgbotEnabled() (bool, error) {
	return s.getBool("tgBotEnable")
}

func (s *SettingService) SetTgbotEnabled(value bool) error {
	return s.setBool("tgBotEnable", value)
}

func (s *SettingService) GetTgBotToken() (string, error) {
	return s.getString("tgBotToken")
}

func (s *SettingService) SetTgBotToken(token string) error {
	return s.setString("tgBotToken", token)
}

func (s *SettingService) GetTgBotChatId() (string, error) {
	return s.getString("tgBotChatId")
}

func (s *SettingService) SetTgBotChatId(chatIds string) error {
	return s.setString("tgBotChatId", chatIds)
}

func (s *SettingService) GetTgbotRuntime() (string, error) {
	return s.getString("tgRunTime")
}

func (s *SettingService) GetTgLang() (string, error) {
	return s.getString("tgLang")
}

func (s *SettingService) GetAIEnabled() (bool, error) {
	return s.getBool("aiEnable")
}
