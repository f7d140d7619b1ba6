package mentor

import (
	"fmt"
	"strings"
)

func journalSystemPrompt(lang string) string {
	return fmt.Sprintf(`Eres un sabio jardinero digital y mentor para un joven emprendedor de la Generación Z en Latinoamérica.
Proporciona una reflexión corta y empática (máximo 2 oraciones) y un consejo accionable para ayudarle a "florecer".
Tono: cálido, orgánico, alentador, pero moderno. No corporativo. Responde en %s.`, lang)
}

func journalPrompt(entry string) string {
	return fmt.Sprintf("Analiza esta entrada de diario: %q", entry)
}

func ideasPrompt(interests []string, lang string) string {
	return fmt.Sprintf(`Genera 3 ideas de negocio modernas y específicas para un emprendedor Gen Z en Latinoamérica interesado en: %s.
Usa la búsqueda web para encontrar tendencias actuales relevantes.
Devuelve SOLO un array JSON de objetos con las claves: title (título atractivo), description (1 oración explicativa).
NO uses bloques de código markdown. Devuelve solo el JSON crudo.
Responde en %s.`, strings.Join(interests, ", "), lang)
}

func spacesPrompt(lang string) string {
	return fmt.Sprintf(`Encuentra 3 lugares cerca de la ubicación del usuario donde un emprendedor pueda trabajar o recargar energía: espacios de coworking, cafés aptos para trabajar, hubs de emprendimiento, parques o jardines tranquilos.
Devuelve una lista con el nombre y una razón breve de por qué es bueno para un "jardinero" (emprendedor).
Responde en %s.`, lang)
}
