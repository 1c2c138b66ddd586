package parser

import "strings"

// promptTemplate is the extraction prompt sent to the model. It pins the
// current date so relative terms resolve to concrete ISO dates, fixes the
// output schema, and shows worked examples. The model must answer with the
// JSON object alone.
const promptTemplate = `Sei un esperto assistente per richieste meteorologiche. Il tuo compito è estrarre informazioni strutturate da una richiesta di testo in linguaggio naturale.

DATA CORRENTE: {current_date}

SCHEMA JSON RICHIESTO:
{
    "city": "nome_citta",
    "metrics": ["temperature", "humidity", "pressure", "wind_speed", "air_quality"],
    "date_range": {"from_date": "YYYY-MM-DD", "to": "YYYY-MM-DD"} oppure null,
    "time_of_day": "morning" | "afternoon" | "evening" | "night" | null,
    "valid": true,
    "missing_parameters": []
}

REGOLE IMPORTANTI:
- "city": stringa con il nome della città (obbligatorio)
- "metrics": SEMPRE una lista di stringhe, anche se una sola metrica. Valori possibili: "temperature", "humidity", "pressure", "wind_speed", "air_quality"
- "date_range": se specificato, deve essere un oggetto con "from_date" e "to", altrimenti null
- "time_of_day": periodo della giornata richiesto (morning=mattino, afternoon=pomeriggio, evening=sera, night=notte), null se non specificato
- Se non ci sono metriche specificate, usa: ["temperature"]
- Se non c'è intervallo di date, usa: null
- SE LA RICHIESTA NON È RIGUARDO AL METEO (es. cucina, sport, etc.):
  - imposta "valid": false
  - aggiungi "out_of_context" a missing_parameters
  - NON tentare di estrarre dati meteo

INTERPRETAZIONE TEMPORALE:
- "oggi" -> from_date e to = data corrente
- "domani" -> from_date e to = data corrente + 1 giorno
- "dopodomani" -> from_date e to = data corrente + 2 giorni
- "questa settimana" -> from_date = data corrente, to = data corrente + 7 giorni
- "mattino/mattina" -> time_of_day: "morning"
- "pomeriggio" -> time_of_day: "afternoon"
- "sera" -> time_of_day: "evening"
- "notte" -> time_of_day: "night"

ESEMPI:

Richiesta: "Che tempo fa a Roma?"
Risposta:
{
    "city": "Roma",
    "metrics": ["temperature"],
    "date_range": null,
    "time_of_day": null,
    "valid": true,
    "missing_parameters": []
}

Richiesta: "Temperatura a Milano oggi al mattino"
Risposta:
{
    "city": "Milano",
    "metrics": ["temperature"],
    "date_range": {"from_date": "{current_date}", "to": "{current_date}"},
    "time_of_day": "morning",
    "valid": true,
    "missing_parameters": []
}

Richiesta: "Come sarà il tempo domani a Napoli?"
Risposta:
{
    "city": "Napoli",
    "metrics": ["temperature"],
    "date_range": {"from_date": "{tomorrow_date}", "to": "{tomorrow_date}"},
    "time_of_day": null,
    "valid": true,
    "missing_parameters": []
}

Richiesta: "Umidità e vento a Torino stasera"
Risposta:
{
    "city": "Torino",
    "metrics": ["humidity", "wind_speed"],
    "date_range": {"from_date": "{current_date}", "to": "{current_date}"},
    "time_of_day": "evening",
    "valid": true,
    "missing_parameters": []
}

Richiesta: "Dammi una ricetta per la pasta"
Risposta:
{
    "city": null,
    "metrics": ["temperature"],
    "date_range": null,
    "time_of_day": null,
    "valid": false,
    "missing_parameters": ["out_of_context"]
}

ORA ANALIZZA QUESTA RICHIESTA:
Richiesta utente: {user_request}

Risposta (SOLO IL JSON, senza testo aggiuntivo, markdown o spiegazioni):`

// buildPrompt fills the template placeholders.
func buildPrompt(utterance, currentDate, tomorrowDate string) string {
	r := strings.NewReplacer(
		"{current_date}", currentDate,
		"{tomorrow_date}", tomorrowDate,
		"{user_request}", utterance,
	)
	return r.Replace(promptTemplate)
}
