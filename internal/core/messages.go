package core

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Message is a user-facing text with ${name} placeholders. Messages render
// in English by default and can be localized into the national languages.
type Message struct {
	Code     string
	Template string
	Mapping  map[string]string
}

// With returns a copy of m with one more placeholder value.
func (m Message) With(key, value string) Message {
	mapping := make(map[string]string, len(m.Mapping)+1)
	for k, v := range m.Mapping {
		mapping[k] = v
	}
	mapping[key] = value
	m.Mapping = mapping
	return m
}

// String renders the English text.
func (m Message) String() string {
	return interpolate(m.Template, m.Mapping)
}

// Localize renders the text in the closest supported language.
func (m Message) Localize(tag language.Tag) string {
	_, idx, _ := localeMatcher.Match(tag)
	lang := supportedLanguages[idx]
	if lang == "rm" {
		if _, ok := translations[m.Template]["rm"]; !ok {
			lang = "de"
		}
	}
	if t, ok := translations[m.Template][lang]; ok {
		return interpolate(t, m.Mapping)
	}
	return m.String()
}

func interpolate(template string, mapping map[string]string) string {
	if len(mapping) == 0 {
		return template
	}
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "${"+k+"}", mapping[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

var supportedLanguages = []string{"en", "de", "fr", "it", "rm"}

var localeMatcher = language.NewMatcher([]language.Tag{
	language.English,
	language.German,
	language.French,
	language.Italian,
	language.MustParse("rm"),
})

// Import messages. Codes are grouped like the storage codes in
// error_messages.go: FILE for unreadable input, SCH for header problems,
// VAL for line values and XF for checks across files.
var (
	MsgInvalidFile   = Message{Code: "FILE001", Template: "Not a valid csv/xls/xlsx file."}
	MsgEmptyFile     = Message{Code: "FILE002", Template: "The file is empty."}
	MsgFileTooLarge  = Message{Code: "FILE003", Template: "The file exceeds the maximum size of ${limit} bytes."}
	MsgMissingFile   = Message{Code: "FILE004", Template: "Missing file: ${role}"}
	MsgUnknownFormat = Message{Code: "FILE005", Template: "Unknown format: ${format}"}
	MsgEncoding      = Message{Code: "FILE006", Template: "The file contains invalid characters."}
	MsgNotApplicable = Message{Code: "FILE007", Template: "The format ${format} cannot be used here."}

	MsgMissingColumns   = Message{Code: "SCH001", Template: "Missing columns: '${cols}'"}
	MsgDuplicateColumns = Message{Code: "SCH002", Template: "Some column names appear twice: '${cols}'"}

	MsgInvalidInteger         = Message{Code: "VAL001", Template: "Invalid integer: ${col}"}
	MsgMissingValue           = Message{Code: "VAL002", Template: "Missing column: ${col}"}
	MsgInvalidValue           = Message{Code: "VAL003", Template: "Invalid value for ${col}: ${value}"}
	MsgUnknownEntity          = Message{Code: "VAL004", Template: "${name} is unknown"}
	MsgDuplicate              = Message{Code: "VAL005", Template: "${name} was found twice"}
	MsgInvalidEntityValues    = Message{Code: "VAL006", Template: "Invalid entity values"}
	MsgInvalidCandidateValues = Message{Code: "VAL007", Template: "Invalid candidate values"}
	MsgInvalidListValues      = Message{Code: "VAL008", Template: "Invalid list values"}
	MsgInvalidStatus          = Message{Code: "VAL009", Template: "Invalid status"}
	MsgInvalidBallotType      = Message{Code: "VAL010", Template: "Invalid ballot type"}
	MsgInvalidElectionValues  = Message{Code: "VAL011", Template: "Invalid election values"}
	MsgUnknownCandidate       = Message{Code: "VAL012", Template: "Unknown candidate: ${id}"}
	MsgUnknownList            = Message{Code: "VAL013", Template: "Unknown list: ${id}"}
	MsgInvalidPanachage       = Message{Code: "VAL014", Template: "Invalid panachage results"}
	MsgInvalidPartyValues     = Message{Code: "VAL015", Template: "Invalid party results"}
	MsgMandatesMismatch       = Message{Code: "VAL016", Template: "The number of mandates does not match: ${value}"}
	MsgInvalidColor           = Message{Code: "VAL017", Template: "Invalid color: ${value}"}

	MsgNoClearDistrict = Message{Code: "XF001", Template: "No clear district"}
	MsgNoData          = Message{Code: "XF002", Template: "No data found"}
	MsgMissingEntity   = Message{Code: "XF003", Template: "Results of ${name} are missing"}
)

// translations maps templates to language to translated template.
var translations = map[string]map[string]string{
	MsgInvalidFile.Template: {
		"de": "Keine gültige CSV/XLS/XLSX-Datei.",
		"fr": "Fichier csv/xls/xlsx non valide.",
		"it": "File csv/xls/xlsx non valido.",
		"rm": "Betg ina datoteca csv/xls/xlsx valida.",
	},
	MsgEmptyFile.Template: {
		"de": "Die Datei ist leer.",
		"fr": "Le fichier est vide.",
		"it": "Il file è vuoto.",
		"rm": "La datoteca è vida.",
	},
	MsgFileTooLarge.Template: {
		"de": "Die Datei überschreitet die maximale Grösse von ${limit} Bytes.",
		"fr": "Le fichier dépasse la taille maximale de ${limit} octets.",
		"it": "Il file supera la dimensione massima di ${limit} byte.",
	},
	MsgMissingFile.Template: {
		"de": "Fehlende Datei: ${role}",
		"fr": "Fichier manquant: ${role}",
		"it": "File mancante: ${role}",
	},
	MsgUnknownFormat.Template: {
		"de": "Unbekanntes Format: ${format}",
		"fr": "Format inconnu: ${format}",
		"it": "Formato sconosciuto: ${format}",
	},
	MsgEncoding.Template: {
		"de": "Die Datei enthält ungültige Zeichen.",
		"fr": "Le fichier contient des caractères non valides.",
		"it": "Il file contiene caratteri non validi.",
	},
	MsgNotApplicable.Template: {
		"de": "Das Format ${format} kann hier nicht verwendet werden.",
		"fr": "Le format ${format} ne peut pas être utilisé ici.",
		"it": "Il formato ${format} non può essere usato qui.",
	},
	MsgMissingColumns.Template: {
		"de": "Fehlende Spalten: '${cols}'",
		"fr": "Colonnes manquantes: '${cols}'",
		"it": "Colonne mancanti: '${cols}'",
		"rm": "Colonnas mancantas: '${cols}'",
	},
	MsgDuplicateColumns.Template: {
		"de": "Einige Spaltennamen erscheinen doppelt: '${cols}'",
		"fr": "Certains noms de colonnes apparaissent deux fois: '${cols}'",
		"it": "Alcuni nomi di colonna appaiono due volte: '${cols}'",
	},
	MsgInvalidInteger.Template: {
		"de": "Ungültige Ganzzahl: ${col}",
		"fr": "Nombre entier non valide: ${col}",
		"it": "Numero intero non valido: ${col}",
		"rm": "Dumber entir nunvalid: ${col}",
	},
	MsgMissingValue.Template: {
		"de": "Fehlende Spalte: ${col}",
		"fr": "Colonne manquante: ${col}",
		"it": "Colonna mancante: ${col}",
	},
	MsgInvalidValue.Template: {
		"de": "Ungültiger Wert für ${col}: ${value}",
		"fr": "Valeur non valide pour ${col}: ${value}",
		"it": "Valore non valido per ${col}: ${value}",
	},
	MsgUnknownEntity.Template: {
		"de": "${name} ist unbekannt",
		"fr": "${name} est inconnu",
		"it": "${name} è sconosciuto",
		"rm": "${name} è nunenconuschent",
	},
	MsgDuplicate.Template: {
		"de": "${name} wurde zweimal gefunden",
		"fr": "${name} a été trouvé deux fois",
		"it": "${name} è stato trovato due volte",
	},
	MsgInvalidEntityValues.Template: {
		"de": "Ungültige Werte der Gemeinde",
		"fr": "Valeurs de la commune non valides",
		"it": "Valori del comune non validi",
	},
	MsgInvalidCandidateValues.Template: {
		"de": "Ungültige Werte des Kandidierenden",
		"fr": "Valeurs du candidat non valides",
		"it": "Valori del candidato non validi",
	},
	MsgInvalidListValues.Template: {
		"de": "Ungültige Werte der Liste",
		"fr": "Valeurs de la liste non valides",
		"it": "Valori della lista non validi",
	},
	MsgInvalidStatus.Template: {
		"de": "Ungültiger Status",
		"fr": "Statut non valide",
		"it": "Stato non valido",
	},
	MsgInvalidBallotType.Template: {
		"de": "Ungültiger Stimmzetteltyp",
		"fr": "Type de bulletin non valide",
		"it": "Tipo di scheda non valido",
	},
	MsgInvalidElectionValues.Template: {
		"de": "Ungültige Werte der Wahl",
		"fr": "Valeurs de l'élection non valides",
		"it": "Valori dell'elezione non validi",
	},
	MsgUnknownCandidate.Template: {
		"de": "Unbekannter Kandidierender: ${id}",
		"fr": "Candidat inconnu: ${id}",
		"it": "Candidato sconosciuto: ${id}",
	},
	MsgUnknownList.Template: {
		"de": "Unbekannte Liste: ${id}",
		"fr": "Liste inconnue: ${id}",
		"it": "Lista sconosciuta: ${id}",
	},
	MsgInvalidPanachage.Template: {
		"de": "Ungültige Panaschierdaten",
		"fr": "Résultats de panachage non valides",
		"it": "Risultati del panachage non validi",
	},
	MsgInvalidPartyValues.Template: {
		"de": "Ungültige Parteiresultate",
		"fr": "Résultats des partis non valides",
		"it": "Risultati dei partiti non validi",
	},
	MsgMandatesMismatch.Template: {
		"de": "Die Anzahl Mandate stimmt nicht überein: ${value}",
		"fr": "Le nombre de mandats ne correspond pas: ${value}",
		"it": "Il numero di mandati non corrisponde: ${value}",
	},
	MsgInvalidColor.Template: {
		"de": "Ungültige Farbe: ${value}",
		"fr": "Couleur non valide: ${value}",
		"it": "Colore non valido: ${value}",
	},
	MsgNoClearDistrict.Template: {
		"de": "Kein eindeutiger Bezirk",
		"fr": "Pas de district clair",
		"it": "Nessun distretto chiaro",
		"rm": "Nagin district cler",
	},
	MsgNoData.Template: {
		"de": "Keine Daten gefunden",
		"fr": "Aucune donnée trouvée",
		"it": "Nessun dato trovato",
		"rm": "Chattà naginas datas",
	},
	MsgMissingEntity.Template: {
		"de": "Resultate von ${name} fehlen",
		"fr": "Les résultats de ${name} manquent",
		"it": "Mancano i risultati di ${name}",
	},
}
