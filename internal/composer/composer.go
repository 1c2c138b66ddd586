package composer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cybercats/meteo-assistant/internal/llm"
	"github.com/cybercats/meteo-assistant/internal/weather"
)

const unknownCity = "Sconosciuta"

const promptTemplate = `Sei un assistente meteorologico che fornisce risposte chiare e utili.

Ecco i dati meteo grezzi ottenuti per la città '{city}':
{api_response_json}

La richiesta originale dell'utente era: "{original_request}"

Formatta questi dati in una risposta completa, scorrevole e in linguaggio naturale, rispondendo specificamente alla richiesta dell'utente. Usa un linguaggio chiaro e conciso. Se la richiesta chiedeva specifiche metriche (come temperatura, umidità), concentrati su quelle. Se chiedeva un intervallo di date o un periodo della giornata, riassumi le condizioni per quel periodo preferendo statistiche aggregate rispetto ai singoli valori orari.`

// Composer renders aggregated weather data into a natural-language answer.
// It never fails: when the model call errors, the user still gets an apology
// naming the city.
type Composer struct {
	llm llm.Invoker
}

// New creates a Composer over the given model.
func New(invoker llm.Invoker) *Composer {
	return &Composer{llm: invoker}
}

// Compose builds the answer for the original utterance from the fetched data.
func (c *Composer) Compose(ctx context.Context, utterance string, query *weather.WeatherQuery, data *weather.AggregatedWeatherData) string {
	city := query.CityName()
	if city == "" {
		city = unknownCity
	}

	serialized, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Printf("composer: cannot serialize weather data for %s: %v", city, err)
		return apology(city)
	}

	r := strings.NewReplacer(
		"{city}", city,
		"{api_response_json}", string(serialized),
		"{original_request}", utterance,
	)

	answer, err := c.llm.Invoke(ctx, r.Replace(promptTemplate))
	if err != nil {
		log.Printf("composer: model call failed for %s: %v", city, err)
		return apology(city)
	}
	if strings.TrimSpace(answer) == "" {
		return apology(city)
	}

	return answer
}

func apology(city string) string {
	return fmt.Sprintf(
		"Mi dispiace, sono riuscito a recuperare i dati meteo per %s, ma non sono riuscito a formularli in linguaggio naturale a causa di un errore interno.",
		city,
	)
}
