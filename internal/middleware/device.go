package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	deviceSessionName = "storefront"
	deviceIDKey       = "device_id"
)

// NewDeviceStore crée le cookie store signé qui porte l'identifiant d'appareil
func NewDeviceStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Device attribue un identifiant stable au navigateur; le panier lui est rattaché
func Device(store sessions.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := store.Get(c.Request, deviceSessionName)
		if err != nil {
			// cookie altéré ou clé changée : nouvelle session
			logger.Debug("device session reset", zap.Error(err))
		}

		deviceID, _ := session.Values[deviceIDKey].(string)
		if deviceID == "" {
			deviceID = uuid.NewString()
			session.Values[deviceIDKey] = deviceID
			if err := session.Save(c.Request, c.Writer); err != nil {
				logger.Warn("⚠️ Sauvegarde de la session appareil échouée", zap.Error(err))
			}
		}

		c.Set(deviceIDKey, deviceID)
		c.Next()
	}
}

func DeviceID(c *gin.Context) string {
	return c.GetString(deviceIDKey)
}
