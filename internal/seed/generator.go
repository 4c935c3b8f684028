package seed

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	givenNames  = []string{"Max", "Lewis", "Charles", "Lando", "Oscar", "George", "Carlos", "Fernando", "Pierre", "Esteban", "Yuki", "Alex", "Nico", "Kevin", "Valtteri", "Logan"}
	familyNames = []string{"Rossi", "Lauda", "Prost", "Senna", "Clark", "Stewart", "Hill", "Fangio", "Brabham", "Hunt", "Piquet", "Mansell", "Hakkinen", "Button", "Vettel", "Raikkonen"}
)

// Generate builds a season from cfg. Drivers and races get fresh uuid-based
// ids so repeated runs against one service never collide; everything else
// is reproducible from cfg.Seed.
func Generate(cfg *Config) Season {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5eed))
	run := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	drivers := make([]Driver, cfg.Drivers)
	for i := range drivers {
		given := givenNames[rng.IntN(len(givenNames))]
		family := familyNames[rng.IntN(len(familyNames))]
		drivers[i] = Driver{
			ID:         fmt.Sprintf("%s-%s-%03d", strings.ToLower(family), run, i),
			GivenName:  given,
			FamilyName: family,
			Code:       fmt.Sprintf("%s%d", strings.ToUpper(family[:2]), i%10),
		}
	}

	field := cfg.FieldSize
	if field <= 1 || field > len(drivers) {
		field = len(drivers)
	}

	races := make([]Race, cfg.Races)
	for i := range races {
		perm := rng.Perm(len(drivers))[:field]
		order := make([]string, field)
		for pos, idx := range perm {
			order[pos] = drivers[idx].ID
		}
		races[i] = Race{
			ID:         uuid.NewString(),
			OccurredOn: cfg.SeasonStart.AddDate(0, 0, 7*i),
			Order:      order,
		}
	}

	return Season{Sport: cfg.Sport, Drivers: drivers, Races: races}
}

// registeredOn dates driver registration one day before the first race.
func registeredOn(cfg *Config) time.Time {
	return cfg.SeasonStart.AddDate(0, 0, -1)
}
