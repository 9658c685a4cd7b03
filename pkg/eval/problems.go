package eval

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Problem struct {
	Question       string `yaml:"question" json:"question"`
	ExpectedAnswer string `yaml:"expected_answer" json:"expected_answer"`
}

// ProblemSet is the on-disk benchmark format:
//
//	name: arithmetic
//	problems:
//	  - question: "What is 2+2?"
//	    expected_answer: "4"
type ProblemSet struct {
	Name     string    `yaml:"name,omitempty" json:"name,omitempty"`
	Problems []Problem `yaml:"problems" json:"problems"`
}

func LoadProblemSet(r io.Reader) (*ProblemSet, error) {
	var ps ProblemSet
	if err := yaml.NewDecoder(r).Decode(&ps); err != nil {
		if err == io.EOF {
			return nil, errors.New("empty problem set")
		}
		return nil, errors.Wrap(err, "decoding problem set")
	}
	if len(ps.Problems) == 0 {
		return nil, errors.New("problem set has no problems")
	}
	for i, p := range ps.Problems {
		if p.Question == "" {
			return nil, errors.Errorf("problem %d has no question", i+1)
		}
		if p.ExpectedAnswer == "" {
			return nil, errors.Errorf("problem %d has no expected answer", i+1)
		}
	}
	return &ps, nil
}

func LoadProblemSetFile(path string) (*ProblemSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening problem set %s", path)
	}
	defer func() {
		_ = f.Close()
	}()
	ps, err := LoadProblemSet(f)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	if ps.Name == "" {
		ps.Name = path
	}
	return ps, nil
}

// DefaultProblemSet is a mix of reasoning puzzles and plain arithmetic word
// problems with known numeric answers.
func DefaultProblemSet() *ProblemSet {
	return &ProblemSet{
		Name: "default",
		Problems: []Problem{
			{
				Question:       "If 6 workers can build 6 tables in 6 days, how many days would it take 12 workers to build 12 tables?",
				ExpectedAnswer: "6",
			},
			{
				Question:       "Three cards are placed in a hat: one card is blue on both sides, one card is red on both sides, and one card is blue on one side and red on the other. You pull out a card and observe that one side is blue. What is the probability that the other side is also blue?",
				ExpectedAnswer: "0.67",
			},
			{
				Question:       "A population of bacteria doubles every 10 minutes. If you start with 1 bacterium and the petri dish is completely full after 5 hours, at what time was the dish 1/4 full?",
				ExpectedAnswer: "4.67",
			},
			{
				Question:       "In a game show, you're given the choice of three doors. Behind one door is a car; behind the others, goats. You pick door #1. The host, who knows what's behind the doors, opens door #3, which has a goat. He then asks if you want to switch to door #2. What is the probability of winning the car if you switch?",
				ExpectedAnswer: "0.67",
			},
			{
				Question:       "If a train travels 60 miles per hour, how far will it travel in 2.5 hours?",
				ExpectedAnswer: "150",
			},
			{
				Question:       "A farmer has 20 chickens, 15 cows, and 10 pigs. How many total legs are there?",
				ExpectedAnswer: "140",
			},
			{
				Question:       "A store sells apples for $1.20 each. If you buy 5 apples, how much will you pay?",
				ExpectedAnswer: "6",
			},
			{
				Question:       "If a rectangle has a width of 4 cm and a length of 9 cm, what is its area?",
				ExpectedAnswer: "36",
			},
			{
				Question:       "The sum of three consecutive even numbers is 48. What is the smallest number?",
				ExpectedAnswer: "14",
			},
			{
				Question:       "A cup is filled with 80% coffee. If you remove 25% of the liquid and replace it with milk, what percentage of coffee remains?",
				ExpectedAnswer: "60",
			},
			{
				Question:       "A worker can complete a job in 10 hours. If two identical workers do the same job together, how long will it take?",
				ExpectedAnswer: "5",
			},
			{
				Question:       "If you flip a fair coin 3 times, what is the probability that you get exactly 2 heads?",
				ExpectedAnswer: "0.375",
			},
		},
	}
}
