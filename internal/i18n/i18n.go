// Package i18n holds the closed set of supported locales and the string
// table for every user-facing message. Unknown locales fall back to English.
package i18n

import "strings"

type Locale struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

const DefaultLanguage = "en"

var locales = []Locale{
	{Code: "en", Label: "English"},
	{Code: "de", Label: "Deutsch"},
	{Code: "fr", Label: "Français"},
	{Code: "es", Label: "Español"},
	{Code: "it", Label: "Italiano"},
	{Code: "pt", Label: "Português"},
}

// englishNames feed the "respond in language X" instruction of every
// remote prompt.
var englishNames = map[string]string{
	"en": "English",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
	"it": "Italian",
	"pt": "Portuguese",
}

func Supported() []Locale {
	out := make([]Locale, len(locales))
	copy(out, locales)
	return out
}

func IsSupported(code string) bool {
	_, ok := englishNames[baseCode(code)]
	return ok
}

func Normalize(code string) string {
	if base := baseCode(code); IsSupported(base) {
		return base
	}
	return DefaultLanguage
}

// baseCode lowercases and strips any region suffix ("de-AT" -> "de").
func baseCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

// EnglishName returns the English name of a locale, for prompt text.
func EnglishName(code string) string {
	return englishNames[Normalize(code)]
}

// T looks up a message by key. Missing translations fall back to English;
// a missing key returns the key itself so the gap is visible.
func T(lang, key string) string {
	lang = Normalize(lang)
	if m, ok := messages[lang]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLanguage][key]; ok {
		return s
	}
	return key
}

var messages = map[string]map[string]string{
	"en": {
		"err_generic":              "Something went wrong during generation. Please try again.",
		"err_topic_author":         "Please fill in the topic and the author name before starting.",
		"err_busy":                 "A generation step is already running. Please wait for it to finish.",
		"err_no_image":             "There is no cover image yet. Generate covers first.",
		"err_export":               "Could not export the cover image. Please try again.",
		"err_no_key":               "No API key is selected. Please select a key and retry.",
		"fallback_trends":          "Covers in this niche favor a clear central motif, strong title typography and high contrast between title and background.",
		"research_running":         "Researching current cover trends…",
		"generation_running":       "Generating cover candidates…",
		"video_running":            "Rendering the promotional video, this can take a few minutes…",
		"video_ready":              "Your promotional video is ready.",
		"covers_ready":             "Here are your cover candidates. Pick one, refine it or create a video.",
	},
	"de": {
		"err_generic":      "Bei der Generierung ist ein Fehler aufgetreten. Bitte erneut versuchen.",
		"err_topic_author": "Bitte Thema und Autorenname ausfüllen, bevor es losgeht.",
		"err_busy":         "Ein Generierungsschritt läuft bereits. Bitte warten.",
		"err_no_image":     "Es gibt noch kein Coverbild. Zuerst Cover generieren.",
		"err_export":       "Das Cover konnte nicht exportiert werden. Bitte erneut versuchen.",
		"err_no_key":       "Kein API-Schlüssel ausgewählt. Bitte Schlüssel wählen und erneut versuchen.",
		"fallback_trends":  "Cover in dieser Nische setzen auf ein klares zentrales Motiv, kräftige Titeltypografie und hohen Kontrast zwischen Titel und Hintergrund.",
		"video_ready":      "Dein Werbevideo ist fertig.",
		"covers_ready":     "Hier sind deine Cover-Entwürfe. Wähle einen aus, verfeinere ihn oder erstelle ein Video.",
	},
	"fr": {
		"err_generic":      "Une erreur est survenue pendant la génération. Veuillez réessayer.",
		"err_topic_author": "Veuillez renseigner le sujet et le nom de l'auteur avant de commencer.",
		"err_busy":         "Une étape de génération est déjà en cours. Veuillez patienter.",
		"err_no_image":     "Il n'y a pas encore d'image de couverture. Générez d'abord des couvertures.",
		"err_export":       "Impossible d'exporter la couverture. Veuillez réessayer.",
		"err_no_key":       "Aucune clé API sélectionnée. Sélectionnez une clé et réessayez.",
		"fallback_trends":  "Dans cette niche, les couvertures privilégient un motif central net, une typographie de titre affirmée et un fort contraste entre le titre et le fond.",
		"video_ready":      "Votre vidéo promotionnelle est prête.",
		"covers_ready":     "Voici vos propositions de couverture. Choisissez-en une, affinez-la ou créez une vidéo.",
	},
	"es": {
		"err_generic":      "Algo salió mal durante la generación. Inténtalo de nuevo.",
		"err_topic_author": "Completa el tema y el nombre del autor antes de empezar.",
		"err_busy":         "Ya hay un paso de generación en curso. Espera a que termine.",
		"err_no_image":     "Todavía no hay imagen de portada. Genera portadas primero.",
		"err_export":       "No se pudo exportar la portada. Inténtalo de nuevo.",
		"err_no_key":       "No hay clave de API seleccionada. Selecciona una clave y reintenta.",
		"fallback_trends":  "En este nicho las portadas apuestan por un motivo central claro, tipografía de título potente y alto contraste entre título y fondo.",
		"video_ready":      "Tu vídeo promocional está listo.",
		"covers_ready":     "Aquí tienes tus propuestas de portada. Elige una, refínala o crea un vídeo.",
	},
	"it": {
		"err_generic":      "Si è verificato un errore durante la generazione. Riprova.",
		"err_topic_author": "Compila argomento e nome dell'autore prima di iniziare.",
		"err_busy":         "Un passaggio di generazione è già in corso. Attendi che finisca.",
		"err_no_image":     "Non c'è ancora un'immagine di copertina. Genera prima le copertine.",
		"err_export":       "Impossibile esportare la copertina. Riprova.",
		"err_no_key":       "Nessuna chiave API selezionata. Seleziona una chiave e riprova.",
		"fallback_trends":  "In questa nicchia le copertine puntano su un motivo centrale chiaro, una tipografia del titolo decisa e un forte contrasto tra titolo e sfondo.",
		"video_ready":      "Il tuo video promozionale è pronto.",
		"covers_ready":     "Ecco le tue proposte di copertina. Scegline una, perfezionala o crea un video.",
	},
	"pt": {
		"err_generic":      "Algo deu errado durante a geração. Tente novamente.",
		"err_topic_author": "Preencha o tema e o nome do autor antes de começar.",
		"err_busy":         "Uma etapa de geração já está em andamento. Aguarde.",
		"err_no_image":     "Ainda não há imagem de capa. Gere capas primeiro.",
		"err_export":       "Não foi possível exportar a capa. Tente novamente.",
		"err_no_key":       "Nenhuma chave de API selecionada. Selecione uma chave e tente de novo.",
		"fallback_trends":  "Neste nicho, as capas apostam em um motivo central claro, tipografia de título marcante e alto contraste entre título e fundo.",
		"video_ready":      "Seu vídeo promocional está pronto.",
		"covers_ready":     "Aqui estão suas propostas de capa. Escolha uma, refine-a ou crie um vídeo.",
	},
}
