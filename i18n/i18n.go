package i18n

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/jeandeaual/go-locale"
)

// lang is read by countdown workers building notifications.
var lang atomic.Value

var translations = map[string]map[string]string{
	"Timer '%s' completed!": {
		"pt": "Temporizador '%s' concluído!",
		"es": "¡Temporizador '%s' completado!",
		"ru": "Таймер '%s' завершён!",
	},
	"Running": {
		"pt": "Em andamento",
		"es": "En marcha",
		"ru": "Идёт",
	},
	"Paused": {
		"pt": "Pausado",
		"es": "En pausa",
		"ru": "Пауза",
	},
	"ALARM!": {
		"pt": "ALARME!",
		"es": "¡ALARMA!",
		"ru": "БУДИЛЬНИК!",
	},
	"Finished": {
		"pt": "Concluído",
		"es": "Terminado",
		"ru": "Завершён",
	},
	"Pause": {
		"pt": "Pausar",
		"es": "Pausar",
		"ru": "Пауза",
	},
	"Resume": {
		"pt": "Retomar",
		"es": "Reanudar",
		"ru": "Продолжить",
	},
	"Stop": {
		"pt": "Parar",
		"es": "Parar",
		"ru": "Стоп",
	},
	"Stop Alarm": {
		"pt": "Parar alarme",
		"es": "Detener alarma",
		"ru": "Выключить",
	},
	"Rerun": {
		"pt": "Reiniciar",
		"es": "Reiniciar",
		"ru": "Перезапуск",
	},
	"Delete": {
		"pt": "Excluir",
		"es": "Eliminar",
		"ru": "Удалить",
	},
	"New Timer": {
		"pt": "Novo temporizador",
		"es": "Nuevo temporizador",
		"ru": "Новый таймер",
	},
	"Settings": {
		"pt": "Configurações",
		"es": "Ajustes",
		"ru": "Настройки",
	},
	"Name": {
		"pt": "Nome",
		"es": "Nombre",
		"ru": "Название",
	},
	"Duration": {
		"pt": "Duração",
		"es": "Duración",
		"ru": "Длительность",
	},
	"Description": {
		"pt": "Descrição",
		"es": "Descripción",
		"ru": "Описание",
	},
	"Sound": {
		"pt": "Som",
		"es": "Sonido",
		"ru": "Звук",
	},
	"hh:mm:ss, mm:ss or seconds": {
		"pt": "hh:mm:ss, mm:ss ou segundos",
		"es": "hh:mm:ss, mm:ss o segundos",
		"ru": "чч:мм:сс, мм:сс или секунды",
	},
	"Close": {
		"pt": "Fechar",
		"es": "Cerrar",
		"ru": "Закрыть",
	},
	"No active timer": {
		"pt": "Nenhum temporizador ativo",
		"es": "Ningún temporizador activo",
		"ru": "Нет активных таймеров",
	},
	"%d/%d words": {
		"pt": "%d/%d palavras",
		"es": "%d/%d palabras",
		"ru": "%d/%d слов",
	},
	"Create": {
		"pt": "Criar",
		"es": "Crear",
		"ru": "Создать",
	},
	"Cancel": {
		"pt": "Cancelar",
		"es": "Cancelar",
		"ru": "Отмена",
	},
	"Save": {
		"pt": "Salvar",
		"es": "Guardar",
		"ru": "Сохранить",
	},
	"Edit": {
		"pt": "Editar",
		"es": "Editar",
		"ru": "Изменить",
	},
	"Browse...": {
		"pt": "Procurar...",
		"es": "Examinar...",
		"ru": "Обзор...",
	},
	"Preview": {
		"pt": "Ouvir",
		"es": "Escuchar",
		"ru": "Прослушать",
	},
	"Reset": {
		"pt": "Redefinir",
		"es": "Restablecer",
		"ru": "Сбросить",
	},
	"Built-in alarm": {
		"pt": "Alarme padrão",
		"es": "Alarma integrada",
		"ru": "Встроенный сигнал",
	},
	"Show notifications": {
		"pt": "Mostrar notificações",
		"es": "Mostrar notificaciones",
		"ru": "Показывать уведомления",
	},
	"Include description": {
		"pt": "Incluir descrição",
		"es": "Incluir descripción",
		"ru": "Включать описание",
	},
	"Urgency": {
		"pt": "Urgência",
		"es": "Urgencia",
		"ru": "Срочность",
	},
	"Loop sound": {
		"pt": "Repetir som",
		"es": "Repetir sonido",
		"ru": "Повторять звук",
	},
	"Start saved timers automatically": {
		"pt": "Iniciar temporizadores salvos automaticamente",
		"es": "Iniciar temporizadores guardados automáticamente",
		"ru": "Автоматически запускать сохранённые таймеры",
	},
	"Save timers between sessions": {
		"pt": "Salvar temporizadores entre sessões",
		"es": "Guardar temporizadores entre sesiones",
		"ru": "Сохранять таймеры между запусками",
	},
	"Default sound": {
		"pt": "Som padrão",
		"es": "Sonido predeterminado",
		"ru": "Звук по умолчанию",
	},
	"Delete timer '%s'?": {
		"pt": "Excluir o temporizador '%s'?",
		"es": "¿Eliminar el temporizador '%s'?",
		"ru": "Удалить таймер '%s'?",
	},
	"Rerun timer '%s'?": {
		"pt": "Reiniciar o temporizador '%s'?",
		"es": "¿Reiniciar el temporizador '%s'?",
		"ru": "Перезапустить таймер '%s'?",
	},
}

func init() {
	// Check for override environment variable
	if forcedLang := strings.TrimSpace(os.Getenv("TIMERING_LANG")); forcedLang != "" {
		log.Printf("TIMERING_LANG is set to: '%s'", forcedLang)
		lang.Store(normalize(forcedLang))
		return
	}

	userLocales, err := locale.GetLocales()
	if err != nil {
		log.Println("Could not get user locale, defaulting to english")
		lang.Store("en")
		return
	}

	if len(userLocales) > 0 {
		lang.Store(normalize(userLocales[0]))
	} else {
		lang.Store("en")
	}
}

func normalize(locale string) string {
	switch {
	case strings.HasPrefix(locale, "pt"):
		return "pt"
	case strings.HasPrefix(locale, "es"):
		return "es"
	case strings.HasPrefix(locale, "ru"):
		return "ru"
	}
	return "en"
}

// T translates key into the current language, falling back to key.
func T(key string) string {
	if translated, ok := translations[key][GetLang()]; ok {
		return translated
	}
	return key
}

// Tf translates a format key and applies args.
func Tf(key string, args ...any) string {
	return fmt.Sprintf(T(key), args...)
}

// GetLang returns the active language code.
func GetLang() string {
	l, _ := lang.Load().(string)
	return l
}

// SetLang overrides the active language.
func SetLang(l string) {
	lang.Store(normalize(l))
}
